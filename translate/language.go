package translate

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName returns an English display name for a BCP 47 code, e.g.
// "Chinese (China) [zh-CN]". Unparseable codes are returned unchanged.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s [%s]", name, code)
}

// NativeName returns the language's name in itself ("español"), falling
// back to the code.
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return code
}
