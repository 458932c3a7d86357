// Package kanjidex 提供内嵌的汉字元数据：含义与 JLPT 等级。
// 数据来源于规整后的 kanji 词典导出文件，按需扩充即可。
package kanjidex

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"
)

//go:embed kanji.json
var kanjiJSON []byte

// Entry 描述一个汉字的静态信息
type Entry struct {
	Character string `json:"character"`
	Meaning   string `json:"meaning"`
	JLPT      string `json:"jlpt"`
}

var (
	loadOnce sync.Once
	entries  []Entry
	byChar   map[string]Entry
)

func load() {
	loadOnce.Do(func() {
		if err := json.Unmarshal(kanjiJSON, &entries); err != nil {
			// 内嵌数据损坏属于构建错误，直接 panic 暴露
			panic("kanjidex: corrupt embedded kanji data: " + err.Error())
		}
		byChar = make(map[string]Entry, len(entries))
		for _, e := range entries {
			byChar[e.Character] = e
		}
	})
}

// Lookup 按字符查询条目，JLPT 统一为小写（如 "n5"）
func Lookup(char string) (Entry, bool) {
	load()
	e, ok := byChar[char]
	if !ok {
		return Entry{}, false
	}
	e.JLPT = strings.ToLower(strings.TrimSpace(e.JLPT))
	return e, true
}

// All 返回全部条目的副本
func All() []Entry {
	load()
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// IsLevel 判断给定字符串是否为合法的 JLPT 等级键
func IsLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "n1", "n2", "n3", "n4", "n5":
		return true
	}
	return false
}
