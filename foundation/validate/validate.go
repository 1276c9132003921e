// Package validate contains the support for validating models.
package validate

import (
	"reflect"
	"strings"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/block"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/holiman/uint256"
)

// validate holds the settings and caches for validating request struct values.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator ut.Translator

// custom holds the validation tags this package adds and the message
// reported when they fail.
var custom = []struct {
	tag  string
	fn   validator.Func
	text string
}{
	{tag: "account", fn: isAccount, text: "{0} must be a valid account"},
	{tag: "blockhash", fn: isBlockHash, text: "{0} must be a 64 character hex hash"},
	{tag: "raw", fn: isRaw, text: "{0} must be a raw amount"},
}

func init() {

	// Instantiate a validator.
	validate = validator.New()

	// Create a translator for english so the error messages are
	// more human-readable than technical.
	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")

	// Register the english error messages for use.
	en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for _, c := range custom {
		validate.RegisterValidation(c.tag, c.fn)

		tag, text := c.tag, c.text
		validate.RegisterTranslation(tag, translator,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(tag, fe.Field())
				return t
			},
		)
	}
}

// Check validates the provided model against it's declared tags.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		// Use a type assertion to get the real error value.
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		var fields FieldErrors
		for _, verror := range verrors {
			field := FieldError{
				Field: verror.Field(),
				Err:   verror.Translate(translator),
			}
			fields = append(fields, field)
		}

		return fields
	}

	return nil
}

// =============================================================================

func isAccount(fl validator.FieldLevel) bool {
	return account.ID(fl.Field().String()).IsAccount()
}

func isBlockHash(fl validator.FieldLevel) bool {
	return block.IsHash(fl.Field().String())
}

// isRaw accepts a decimal amount that fits in 128 bits.
func isRaw(fl validator.FieldLevel) bool {
	v, err := uint256.FromDecimal(fl.Field().String())
	if err != nil {
		return false
	}

	return v.BitLen() <= 128
}
