package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Languages the bot ships translations for.
const (
	LangEnglish = "en"
	LangBurmese = "mm"
)

type Translator struct {
	translations map[string]string
}

func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := filepath.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the translation for key, formatted with args. Unknown keys come
// back verbatim so a missing entry is visible instead of silent.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Bundle holds one Translator per supported language.
type Bundle struct {
	byLang map[string]*Translator
}

func NewBundle(fsys fs.FS) (*Bundle, error) {
	b := &Bundle{byLang: make(map[string]*Translator)}
	for _, lang := range []string{LangEnglish, LangBurmese} {
		tr, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		b.byLang[lang] = tr
	}
	return b, nil
}

// For returns the translator for lang, falling back to English.
func (b *Bundle) For(lang string) *Translator {
	if tr, ok := b.byLang[lang]; ok {
		return tr
	}
	return b.byLang[LangEnglish]
}
