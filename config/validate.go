package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"gopkg.in/go-playground/validator.v9"
)

var check = validator.New()

func mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("Register custom validator: %v", err))
	}
}

func init() {
	mustRegister(check.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		p := fl.Field().Int()
		return p > 0 && p < 65536
	}))
	mustRegister(check.RegisterValidation("envprefix", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.ToUpper(s) && !strings.ContainsAny(s, " .-")
	}))
}

var once sync.Once
var formats map[string]string

// Validate validates a struct using its validate tags. Every failed field is
// returned as an error diagnostic with the given subject.
func Validate(v interface{}, subject hcl.Range) hcl.Diagnostics {
	err := check.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return hcl.Diagnostics{{Severity: hcl.DiagError, Summary: err.Error(), Subject: subject.Ptr()}}
	}
	once.Do(initFormatters)
	var diags hcl.Diagnostics
	for _, fe := range errs {
		detail := fmt.Sprintf("Validation %q failed.", fe.Tag())
		if format, ok := formats[fe.Tag()]; ok {
			if strings.Contains(format, "%") {
				detail = fmt.Sprintf(format, fe.Param())
			} else {
				detail = format
			}
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Invalid %s", fe.Field()),
			Detail:   fmt.Sprintf("%s: %s", fe.Namespace(), detail),
			Subject:  subject.Ptr(),
		})
	}
	return diags
}

func initFormatters() {
	formats = map[string]string{
		"required":         "a value is required",
		"gte":              "must be %v or more",
		"lte":              "must be %v or less",
		"oneof":            "must be one of: [%v]",
		"hostname_rfc1123": "must be a valid host name",

		// custom
		"port":      "must be a port number between 1 and 65535",
		"envprefix": "must be upper case without spaces, dots or dashes",
	}
}
