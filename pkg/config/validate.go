package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validate checks the server settings.
func (c *ServerConfig) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := strings.TrimPrefix(fe.Namespace(), "ServerConfig.")
			msg := fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			return &ValidationError{Field: "server." + field, Message: "failed " + msg}
		}
		return &ValidationError{Field: "server", Message: err.Error()}
	}
	if c.Store.Backend == StoreRedis && c.Store.Redis.Addr == "" {
		return &ValidationError{Field: "server.store.redis.addr", Message: "required when backend is redis"}
	}
	return nil
}

// Validate checks server settings and every endpoint, returning all
// failures joined.
func (f *File) Validate() error {
	var errs []error
	if f.Server != nil {
		if err := f.Server.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := f.ToEndpoints(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
