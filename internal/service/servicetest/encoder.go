package servicetest

import (
	"context"
	"sync"

	"qrious/internal/core"
)

// pngHeader 假圖片內容，只需要能被包成 data URL
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Encoder 計數用的假編碼器；Fail 回傳非 nil 時該次呼叫失敗
type Encoder struct {
	mu       sync.Mutex
	contents []string

	Fail func(call int, content string) error
}

func (e *Encoder) Encode(_ context.Context, content string, _ core.Style) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.contents = append(e.contents, content)
	if e.Fail != nil {
		if err := e.Fail(len(e.contents), content); err != nil {
			return nil, err
		}
	}
	return append([]byte(nil), pngHeader...), nil
}

func (e *Encoder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.contents)
}

// Contents 每次被編碼的內容
func (e *Encoder) Contents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.contents...)
}
