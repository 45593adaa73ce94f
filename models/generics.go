package models

import (
	"context"
	"errors"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
)

// fetch one resource, using ctx's resort_id in WHERE
// (may return RecordNotFound error)
func GetResource[T any](ctx context.Context, id int, associations ...string) (*T, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	return utils.FetchModel[T](ctx, resortId, id, associations...)
}

func ToggleActiveModel[T any](ctx context.Context, resortId string, id int, isActive bool) (*T, error) {
	result, err := utils.FetchModel[T](ctx, resortId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(result).Update("is_active", isActive).Error; err != nil {
		return nil, err
	}
	return result, nil
}
