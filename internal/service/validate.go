package service

import (
	"fmt"
	"strings"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", errs.ErrValidation, field)
	}
	return nil
}

func checkEnum(field, value string, allowed []string) error {
	if !model.OneOf(value, allowed) {
		return fmt.Errorf("%w: %s must be one of %s", errs.ErrValidation, field, strings.Join(allowed, ", "))
	}
	return nil
}

// firstErr 返回第一个非 nil 错误
func firstErr(errList ...error) error {
	for _, err := range errList {
		if err != nil {
			return err
		}
	}
	return nil
}
