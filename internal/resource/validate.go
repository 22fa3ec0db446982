package resource

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput は送信前の入力検証に失敗したことを表す。
var ErrInvalidInput = errors.New("入力値が不正です")

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z]{3,20}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9!@#$%]{4,12}$`)
)

// NewValidator はtechnotes用のカスタムルールを登録したバリデータを生成する。
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("technotes_username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("technotes_username バリデータの登録に失敗: %w", err)
	}
	if err := v.RegisterValidation("technotes_password", func(fl validator.FieldLevel) bool {
		return passwordPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("technotes_password バリデータの登録に失敗: %w", err)
	}
	return v, nil
}

// validateInput は入力を検証し、失敗した場合はErrInvalidInputでラップしたエラーを返す。
func validateInput(v *validator.Validate, input any) error {
	if err := v.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s は %s を満たしません", ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
