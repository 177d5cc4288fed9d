package ui

import "github.com/zsprackett/cursor-usage/internal/config"

type texts struct {
	Title        string
	Used         string
	Remaining    string
	UsageRate    string
	Account      string
	LastUpdate   string
	Requests     string
	Loading      string
	Error        string
	Interval     string
	Language     string
	Options      string
	Refresh      string
	OpenSettings string
	Quit         string
}

var textTable = map[config.Language]texts{
	config.LanguageChinese: {
		Title:        "🤖 Cursor GPT-4 用量",
		Used:         "已用",
		Remaining:    "剩余",
		UsageRate:    "使用率",
		Account:      "账户",
		LastUpdate:   "最后更新",
		Requests:     "次请求",
		Loading:      "正在加载…",
		Error:        "错误",
		Interval:     "⏳ 刷新间隔",
		Language:     "🇺🇳 语言",
		Options:      "⚙️ 选项",
		Refresh:      "刷新数据",
		OpenSettings: "打开Cursor设置",
		Quit:         "退出",
	},
	config.LanguageEnglish: {
		Title:        "🤖 Cursor GPT-4 Usage",
		Used:         "Used",
		Remaining:    "Remaining",
		UsageRate:    "Usage",
		Account:      "Account",
		LastUpdate:   "Last updated",
		Requests:     "requests",
		Loading:      "Loading…",
		Error:        "Error",
		Interval:     "⏳ Refresh Interval",
		Language:     "🇺🇳 Language",
		Options:      "⚙️ Options",
		Refresh:      "Refresh Data",
		OpenSettings: "Open Cursor Settings",
		Quit:         "Exit",
	},
}

func textsFor(lang config.Language) texts {
	if t, ok := textTable[lang]; ok {
		return t
	}
	return textTable[config.LanguageChinese]
}

// languageLabel is how lang is listed in the language section.
func languageLabel(lang config.Language) string {
	if lang == config.LanguageEnglish {
		return "English"
	}
	return "中文"
}
