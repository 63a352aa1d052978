// Package forms declares the HTML forms of the catalog and turns binding
// failures into per-field messages the templates can render.
package forms

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"itemcatalog/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	MaxNameLength        = 40
	MaxDescriptionLength = 500

	msgRequired      = "This field is required."
	msgInvalidChoice = "Not a valid choice"
)

func init() {
	// report fields under their form names rather than the Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// Errors maps a form field to its validation messages. An empty Errors
// means the form is valid.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// Get is used by templates to render the messages of one field.
func (e Errors) Get(field string) []string {
	return e[field]
}

type CategoryForm struct {
	Name        string `form:"name" binding:"required,max=40"`
	Description string `form:"description" binding:"max=500"`
}

func NewCategoryForm(category *models.Category) *CategoryForm {
	return &CategoryForm{Name: category.Name, Description: category.Description}
}

// ItemForm keeps the category as submitted so an unparsable value can be
// reported as an invalid choice instead of a binding failure.
type ItemForm struct {
	Name        string `form:"name" binding:"required,max=40"`
	Category    string `form:"category"`
	Description string `form:"description" binding:"max=500"`
}

func NewItemForm(item *models.Item) *ItemForm {
	return &ItemForm{
		Name:        item.Name,
		Category:    strconv.FormatInt(item.Category, 10),
		Description: item.Description,
	}
}

// CategoryID returns the submitted category id. It is only meaningful once
// CheckCategory accepted the form.
func (f *ItemForm) CategoryID() int64 {
	id, _ := strconv.ParseInt(f.Category, 10, 64)
	return id
}

// CheckCategory validates the category against choices, which the caller
// must load right before validating.
func (f *ItemForm) CheckCategory(choices []models.Category, errs Errors) {
	id, err := strconv.ParseInt(f.Category, 10, 64)
	if err != nil {
		errs.Add("category", msgInvalidChoice)
		return
	}

	for _, choice := range choices {
		if choice.ID == id {
			return
		}
	}
	errs.Add("category", msgInvalidChoice)
}

// Bind decodes the request form into form and validates its binding tags.
// Values are trimmed first so whitespace never satisfies required.
func Bind(c *gin.Context, form interface{}) Errors {
	if err := c.Request.ParseForm(); err != nil {
		errs := Errors{}
		errs.Add("form", "Invalid form submission.")
		return errs
	}
	TrimValues(c.Request.PostForm)
	TrimValues(c.Request.Form)

	return translate(c.ShouldBindWith(form, binding.Form))
}

func TrimValues(values url.Values) {
	for key, vals := range values {
		for i, value := range vals {
			values[key][i] = strings.TrimSpace(value)
		}
	}
}

func translate(err error) Errors {
	errs := Errors{}
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs.Add("form", "Invalid form submission.")
		return errs
	}

	for _, fe := range validationErrors {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}
