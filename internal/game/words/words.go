// Package words 提供对局使用的单词来源
package words

import (
	_ "embed"
	"math/rand/v2"
	"strings"
	"sync"
)

//go:embed vocabulary.txt
var vocabularyFile string

var (
	defaultOnce  sync.Once
	defaultWords []string
)

// Source 单词来源，对局内每生成一个目标调用一次
type Source interface {
	Pick(rng *rand.Rand) string
}

// Vocabulary 固定词表
type Vocabulary struct {
	words []string
}

// Default 返回内置词表
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		defaultWords = parse(vocabularyFile)
	})
	return &Vocabulary{words: defaultWords}
}

// NewVocabulary 使用自定义词表，空白项会被忽略
func NewVocabulary(words []string) *Vocabulary {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return &Vocabulary{words: out}
}

// Pick 随机取一个单词
func (v *Vocabulary) Pick(rng *rand.Rand) string {
	if len(v.words) == 0 {
		return ""
	}
	return v.words[rng.IntN(len(v.words))]
}

// Len 词表大小
func (v *Vocabulary) Len() int {
	return len(v.words)
}

// Contains 判断单词是否在词表中（不区分大小写）
func (v *Vocabulary) Contains(word string) bool {
	for _, w := range v.words {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

func parse(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

// Sequence 按固定顺序循环返回单词，测试用
type Sequence struct {
	mu    sync.Mutex
	words []string
	next  int
}

// NewSequence 创建顺序单词源
func NewSequence(words ...string) *Sequence {
	return &Sequence{words: words}
}

// Pick 忽略随机数，按顺序返回
func (s *Sequence) Pick(_ *rand.Rand) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.words) == 0 {
		return ""
	}
	w := s.words[s.next%len(s.words)]
	s.next++
	return w
}
