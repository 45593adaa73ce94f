package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/serenia-hospitality/procure_backend/config"
	"github.com/serenia-hospitality/procure_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ResortId  string    `gorm:"index" json:"resort_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	Role      UserRole  `gorm:"type:enum('Owner', 'Staff');default:'Staff'" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role"`
}

/*
caches:
	User:$username
*/

func (user User) RemoveInstanceRedis() error {
	return config.DeleteRedisKey("User:" + user.Username)
}

type LoginInfo struct {
	Token      string `json:"token"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	ResortId   string `json:"resort_id"`
	ResortName string `json:"resort_name"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

// createDefaultOwner is called inside CreateResort's transaction; the first
// login of a new resort is the resort's contact email.
func createDefaultOwner(tx *gorm.DB, ctx context.Context, resortId string, email string, name string) (*User, error) {

	hashedPassword, err := utils.HashPassword("default123")
	if err != nil {
		return &User{}, err
	}

	owner := User{
		ResortId: resortId,
		Username: email,
		Name:     name,
		Email:    &email,
		Password: string(hashedPassword),
		IsActive: utils.NewTrue(),
		Role:     UserRoleOwner,
	}
	if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	return &owner, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var err error
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		err = db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	// check login credentials; any compare failure (mismatch or an unreadable
	// stored hash) must deny the login
	err = utils.ComparePassword(user.Password, password)
	if err != nil {
		return &result, errors.New("invalid username or password")
	}

	isActive := *user.IsActive
	if !isActive {
		return &result, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, user.ResortId, string(user.Role))
	if err != nil {
		return &result, err
	}

	result.Token = token
	result.Name = user.Username
	result.Role = string(user.Role)
	result.ResortId = user.ResortId

	resort, err := GetResortById(ctx, user.ResortId)
	if err == nil {
		result.ResortName = resort.Name
	}

	if !exists {
		if err := config.SetRedisObject("User:"+user.Username, &user, time.Hour); err != nil {
			return &result, err
		}
	}

	return &result, nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var count int64

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return &User{}, errors.New("invalid email address")
	}

	err := db.WithContext(ctx).Model(&User{}).Where("username = ?", input.Username).Or("email = ?", input.Email).Count(&count).Error
	if err != nil {
		return &User{}, err
	}
	if count > 0 {
		return &User{}, errors.New("duplicate username or email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return &User{}, err
	}
	input.Email = strings.ToLower(input.Email)

	role := input.Role
	if role == "" {
		role = UserRoleStaff
	}

	user := User{
		Username: html.EscapeString(strings.TrimSpace(input.Username)),
		ResortId: resortId,
		Name:     input.Name,
		Email:    utils.NilIfEmpty(input.Email),
		Phone:    input.Phone,
		Password: string(hashedPassword),
		IsActive: utils.NewTrue(),
		Role:     role,
	}

	err = db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return &User{}, err
	}
	user.Password = ""
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	result, err := utils.FetchModel[User](ctx, resortId, id)
	if err != nil {
		return nil, err
	}
	result.PrepareGive()
	return result, nil
}

func ListUsers(ctx context.Context) ([]*User, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}

	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Where("resort_id = ?", resortId).Order("username").Find(&results).Error; err != nil {
		return nil, err
	}
	for i, u := range results {
		u.Password = ""
		results[i] = u
	}
	return results, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (bool, error) {

	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return false, errors.New("resort id is required")
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return false, errors.New("user not found")
	}

	user, err := utils.FetchModel[User](ctx, resortId, userId)
	if err != nil {
		return false, err
	}

	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return false, errors.New("invalid password")
	}
	if len(newPassword) < 8 {
		return false, errors.New("password must be at least 8 characters")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return false, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		return false, err
	}
	if err := user.RemoveInstanceRedis(); err != nil {
		return false, err
	}
	return true, nil
}

func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	resortId, ok := utils.GetResortIdFromContext(ctx)
	if !ok || resortId == "" {
		return nil, errors.New("resort id is required")
	}
	result, err := ToggleActiveModel[User](ctx, resortId, id, isActive)
	if err != nil {
		return nil, err
	}
	if err := result.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	result.PrepareGive()
	return result, nil
}
