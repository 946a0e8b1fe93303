package entity

import "strings"

// Language represents a vocabulary entry language using ISO-style abbreviations.
type Language string

const (
	LanguageUnspecified Language = ""
	LanguageEnglish     Language = "en"
	LanguageChinese     Language = "zh"
	LanguageSpanish     Language = "es"
	LanguageFrench      Language = "fr"
	LanguageGerman      Language = "de"
	LanguageJapanese    Language = "ja"
	LanguageKorean      Language = "ko"
)

// Code returns the lowercase language code (without defaulting).
func (l Language) Code() string {
	return strings.ToLower(strings.TrimSpace(string(l)))
}

// ParseLanguage converts an arbitrary string into a Language value. Codes
// outside the predefined set are kept as-is since entries may be written by
// other clients.
func ParseLanguage(code string) Language {
	return Language(strings.ToLower(strings.TrimSpace(code)))
}

// NormalizeEmail lowercases and trims an email so it can be used as a document key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
