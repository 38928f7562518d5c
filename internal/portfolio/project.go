// Package portfolio holds the ordered list of portfolio projects and keeps it
// mirrored into a single slot of the key-value substrate.
package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Category string

const (
	CategoryWebApp  Category = "Web App"
	CategoryAPI     Category = "API"
	CategoryMobile  Category = "Mobile"
	CategoryDesktop Category = "Desktop"
	CategoryPWA     Category = "PWA"
)

// Categories lists the accepted categories in display order.
var Categories = []Category{CategoryWebApp, CategoryAPI, CategoryMobile, CategoryDesktop, CategoryPWA}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Project is a single portfolio entry. The JSON shape matches the mirror
// written by earlier releases of the site.
type Project struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl"`
	ProjectURL  string   `json:"projectUrl"`
	Tags        []string `json:"tags"`
	Category    Category `json:"category,omitempty"`
}

// Input carries every editable project field.
type Input struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	ImageURL    string   `json:"imageUrl" validate:"required,url"`
	ProjectURL  string   `json:"projectUrl" validate:"required,url"`
	Tags        []string `json:"tags"`
	Category    Category `json:"category"`
}

var (
	ErrValidation  = errors.New("invalid project")
	ErrNotFound    = errors.New("project not found")
	ErrPersistence = errors.New("project list could not be saved")
	ErrNotReady    = errors.New("project store is still loading")
)

// ValidationError names the first offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var validate = validator.New(validator.WithRequiredStructEnabled())

var fieldLabels = map[string]string{
	"Title":       "title",
	"Description": "description",
	"ImageURL":    "imageUrl",
	"ProjectURL":  "projectUrl",
}

var fieldNames = map[string]string{
	"Title":       "Title",
	"Description": "Description",
	"ImageURL":    "Image URL",
	"ProjectURL":  "Project URL",
}

// normalize trims text fields and cleans the tag list.
func (in Input) normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.ProjectURL = strings.TrimSpace(in.ProjectURL)
	in.Tags = dedupeTags(in.Tags)
	in.Category = Category(strings.TrimSpace(string(in.Category)))
	return in
}

// Validate reports the first missing field or malformed URL.
func (in Input) Validate() error {
	in = in.normalize()
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return &ValidationError{Field: fieldLabels[fe.Field()], Message: "Please fill in all fields."}
			}
			return &ValidationError{Field: fieldLabels[fe.Field()], Message: fmt.Sprintf("Please enter a valid %s.", fieldNames[fe.Field()])}
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Category != "" && !in.Category.Valid() {
		return &ValidationError{Field: "category", Message: fmt.Sprintf("Unknown category %q.", in.Category)}
	}
	return nil
}

func (in Input) toProject(id string) Project {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return Project{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		ProjectURL:  in.ProjectURL,
		Tags:        tags,
		Category:    in.Category,
	}
}

// InputOf returns the editable fields of p.
func InputOf(p Project) Input {
	return Input{
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		ProjectURL:  p.ProjectURL,
		Tags:        append([]string(nil), p.Tags...),
		Category:    p.Category,
	}
}

func (p Project) clone() Project {
	p.Tags = append([]string(nil), p.Tags...)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}
