package model

import (
	"strings"

	"github.com/spf13/cast"
	"gorm.io/datatypes"
)

const DefaultLanguage = "en"

// Lesson is authored outside this service. Title, Description and
// ContentURL are keyed by language code.
type Lesson struct {
	UUIDBase
	Subject     string            `gorm:"size:50;index" json:"subject"`
	Title       datatypes.JSONMap `json:"title"`
	Description datatypes.JSONMap `json:"description"`
	ContentURL  datatypes.JSONMap `gorm:"column:content_url" json:"content_url"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LocalizedLesson is a Lesson with every multilingual field resolved to one language.
type LocalizedLesson struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Language    string `json:"language"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ContentURL  string `json:"content_url"`
}

// Resolve picks field[lang], then field[DefaultLanguage], then "".
func Resolve(field datatypes.JSONMap, lang string) string {
	if field == nil {
		return ""
	}
	if v, ok := field[lang]; ok {
		if s := cast.ToString(v); strings.TrimSpace(s) != "" {
			return s
		}
	}
	if v, ok := field[DefaultLanguage]; ok {
		return cast.ToString(v)
	}
	return ""
}

func (l *Lesson) Localize(lang string) LocalizedLesson {
	return LocalizedLesson{
		ID:          l.ID,
		Subject:     l.Subject,
		Language:    lang,
		Title:       Resolve(l.Title, lang),
		Description: Resolve(l.Description, lang),
		ContentURL:  Resolve(l.ContentURL, lang),
	}
}
