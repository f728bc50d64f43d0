// Package tokens counts and trims text against a model token budget. It is
// backed by tiktoken-go's cl100k_base encoding, read from the ranks embedded
// by tiktoken-go-loader so counting never touches the network. It falls back
// to a word/rune heuristic if the encoding cannot be built.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the BPE encoding used for counting.
const Encoding = "cl100k_base"

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

func load() *tiktoken.Tiktoken {
	once.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding(Encoding)
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// Available reports whether the tiktoken encoding loaded.
func Available() bool {
	return load() != nil
}

// Count returns the token count of text, or EstimateFast when tiktoken is
// unavailable.
func Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := load(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast returns max(runes/4, words), and at least 1 for non-blank text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := max(len([]rune(trimmed))/4, len(strings.Fields(trimmed)))
	return max(estimate, 1)
}

// Counter measures text in tokens.
type Counter func(text string) int

// TruncateWords returns the longest whole-word prefix of text whose count is
// at most maxTokens. It never cuts inside a word, so the result may be empty.
func TruncateWords(text string, maxTokens int, count Counter) string {
	if count == nil {
		count = Count
	}
	if maxTokens <= 0 {
		return ""
	}
	if count(text) <= maxTokens {
		return text
	}

	return longestPrefix("", strings.Fields(text), maxTokens, count)
}

// longestPrefix returns the most leading words that still fit within budget
// when appended to head.
func longestPrefix(head string, words []string, budget int, count Counter) string {
	lo, hi := 0, len(words)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if count(head+strings.Join(words[:mid], " ")) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return strings.Join(words[:lo], " ")
}

// Fit joins lines with newlines while the running count stays within budget.
// The first line that does not fit is word-truncated into the remaining
// budget and nothing after it is kept.
func Fit(lines []string, budget int, count Counter) string {
	if count == nil {
		count = Count
	}
	if budget <= 0 {
		return ""
	}

	var kept []string
	for _, line := range lines {
		if line == "" {
			continue
		}
		candidate := strings.Join(append(kept, line), "\n")
		if count(candidate) <= budget {
			kept = append(kept, line)
			continue
		}
		prefix := strings.Join(kept, "\n")
		if len(kept) > 0 {
			prefix += "\n"
		}
		if cut := longestPrefix(prefix, strings.Fields(line), budget, count); cut != "" {
			kept = append(kept, cut)
		}
		break
	}
	return strings.Join(kept, "\n")
}
