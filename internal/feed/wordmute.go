package feed

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/pkg/logger"
)

var errBadRegexLiteral = errors.New("not a /pattern/flags literal")

// WordMute is a compiled set of hard word-mute rules. A post is muted
// when any AND-group has every keyword present in its searchable text,
// or any pattern matches it.
type WordMute struct {
	groups   [][]string
	patterns []*regexp.Regexp
}

// CompileWordMute compiles profile mute entries. Keyword groups match
// case-insensitively; pattern entries are /pattern/flags literals.
// Entries that fail to compile are skipped with a warning.
func CompileWordMute(entries []model.MutedWord) *WordMute {
	wm := &WordMute{}
	for _, entry := range entries {
		if entry.Pattern != "" {
			re, err := parseRegexLiteral(entry.Pattern)
			if err != nil {
				logger.Warn("skipping unparsable muted word pattern",
					zap.String("pattern", entry.Pattern), zap.Error(err))
				continue
			}
			wm.patterns = append(wm.patterns, re)
			continue
		}
		group := make([]string, 0, len(entry.Words))
		for _, word := range entry.Words {
			if word = strings.TrimSpace(word); word != "" {
				group = append(group, strings.ToLower(word))
			}
		}
		if len(group) > 0 {
			wm.groups = append(wm.groups, group)
		}
	}
	return wm
}

// parseRegexLiteral compiles a "/pattern/flags" literal. Unsupported
// flags are dropped rather than rejected.
func parseRegexLiteral(s string) (*regexp.Regexp, error) {
	if len(s) < 2 || s[0] != '/' {
		return nil, errBadRegexLiteral
	}
	end := strings.LastIndex(s, "/")
	if end == 0 {
		return nil, errBadRegexLiteral
	}
	body := s[1:end]
	var mode strings.Builder
	for _, flag := range s[end+1:] {
		switch flag {
		case 'i', 'm', 's':
			mode.WriteRune(flag)
		}
	}
	if mode.Len() > 0 {
		body = "(?" + mode.String() + ")" + body
	}
	return regexp.Compile(body)
}

// Empty reports whether no rule survived compilation.
func (w *WordMute) Empty() bool {
	return w == nil || (len(w.groups) == 0 && len(w.patterns) == 0)
}

// Matches reports whether the post's searchable text trips any rule.
func (w *WordMute) Matches(p model.Post) bool {
	if w.Empty() {
		return false
	}
	text := searchableText(p)
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, group := range w.groups {
		all := true
		for _, word := range group {
			if !strings.Contains(lower, word) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	for _, re := range w.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// searchableText concatenates everything a reader of the post would see:
// its own CW, body and captions, plus the denormalized reply/renote
// previews.
func searchableText(p model.Post) string {
	var parts []string
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	add(p.CW)
	add(p.Text)
	for _, f := range p.Files {
		add(f.Comment)
	}
	add(p.ReplyCW)
	add(p.ReplyText)
	for _, f := range p.ReplyFiles {
		add(f.Comment)
	}
	add(p.RenoteCW)
	add(p.RenoteText)
	for _, f := range p.RenoteFiles {
		add(f.Comment)
	}
	return strings.Join(parts, "\n")
}
