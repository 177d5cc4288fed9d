package config

type Language int

const (
	LanguageChinese Language = iota
	LanguageEnglish
)

var languageNames = map[Language]string{
	LanguageChinese: "Chinese",
	LanguageEnglish: "English",
}

// ParseLanguage maps a persisted name back to a Language. Unknown names give
// Chinese.
func ParseLanguage(s string) Language {
	if l, ok := LookupLanguage(s); ok {
		return l
	}
	return LanguageChinese
}

// LookupLanguage is ParseLanguage without the fallback.
func LookupLanguage(s string) (Language, bool) {
	for l, name := range languageNames {
		if name == s {
			return l, true
		}
	}
	return 0, false
}

func (l Language) String() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return languageNames[LanguageChinese]
}

// Toggle returns the other language.
func (l Language) Toggle() Language {
	if l == LanguageEnglish {
		return LanguageChinese
	}
	return LanguageEnglish
}
