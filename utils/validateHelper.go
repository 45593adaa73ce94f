package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/serenia-hospitality/procure_backend/config"
)

// check if id exists, using ctx's resort_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, resortId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, resortId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// check if ALL id exists, using ctx's resort_id in WHERE, return RecordNotFound error
func ValidateResourcesId[M any, ID comparable](ctx context.Context, resortId string, ids []ID) error {
	unqIds := UniqueSlice(ids)

	count, err := ResourceCountWhere[M](ctx, resortId, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, resortId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, resortId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, resortId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}

// count records, using WHERE resort_id = ? AND $condition
// resort_id can be blank for admin user
func ResourceCountWhere[T any](ctx context.Context, resortId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if resortId != "" {
		dbCtx.Where("resort_id = ?", resortId)
	}
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
