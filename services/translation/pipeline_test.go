// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTranslator records calls and returns a canned transformation.
type fakeTranslator struct {
	calls []string
	fail  bool
}

func (f *fakeTranslator) Translate(_ context.Context, text, src, dest string) (string, error) {
	f.calls = append(f.calls, src+"->"+dest)
	if f.fail {
		return "", errors.New("endpoint unavailable")
	}
	return fmt.Sprintf("[%s→%s]%s", src, dest, text), nil
}

func TestPipelineEnglishPassthrough(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft, nil)

	tc := p.ToEnglish(context.Background(), "What is the weather in Seoul?")
	assert.False(t, tc.IsTranslated)
	assert.Equal(t, "en", tc.OriginalLang)
	assert.Empty(t, ft.calls, "English input must not hit the translator")

	out := p.FromEnglish(context.Background(), "It is sunny.", tc)
	assert.Equal(t, "It is sunny.", out)
	assert.Empty(t, ft.calls)
}

func TestPipelineRoundTrip(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft, nil)

	tc := p.ToEnglish(context.Background(), "서울 날씨 어때?")
	require.True(t, tc.IsTranslated)
	assert.Equal(t, "ko", tc.OriginalLang)
	assert.Equal(t, []string{"ko->en"}, ft.calls)

	out := p.FromEnglish(context.Background(), "It is sunny.", tc)
	assert.Equal(t, "[en→ko]It is sunny.", out)
	assert.Equal(t, []string{"ko->en", "en->ko"}, ft.calls)
}

func TestPipelinePreservesCodeBlocks(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft, nil)

	tc := Context{OriginalLang: "ko", IsTranslated: true}
	response := "Here is the script:\n```bash\nls -la /tmp\n```\nRun it carefully."

	out := p.FromEnglish(context.Background(), response, tc)
	assert.Contains(t, out, "```bash\nls -la /tmp\n```",
		"code fence content must survive byte-for-byte")
	assert.NotContains(t, out, "__CODE_BLOCK_")
	// Only the prose around the fence goes to the translator.
	require.Len(t, ft.calls, 1)
}

func TestPipelineInboundFailureFallsBack(t *testing.T) {
	ft := &fakeTranslator{fail: true}
	p := NewPipeline(ft, nil)

	tc := p.ToEnglish(context.Background(), "안녕하세요")
	assert.False(t, tc.IsTranslated)
	assert.Equal(t, "ko", tc.OriginalLang)
	assert.Equal(t, "안녕하세요", tc.EnglishText)

	// Not translated inbound, so outbound is skipped entirely.
	out := p.FromEnglish(context.Background(), "hello", tc)
	assert.Equal(t, "hello", out)
}

func TestPipelineOutboundFailureReturnsEnglish(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft, nil)
	tc := p.ToEnglish(context.Background(), "안녕하세요")
	require.True(t, tc.IsTranslated)

	ft.fail = true
	out := p.FromEnglish(context.Background(), "The answer is 42.", tc)
	assert.Equal(t, "The answer is 42.", out)
}

func TestWebTranslatorParsesGtxResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gtx", r.URL.Query().Get("client"))
		assert.Equal(t, "ko", r.URL.Query().Get("sl"))
		assert.Equal(t, "en", r.URL.Query().Get("tl"))
		fmt.Fprint(w, `[[["Hello, ","안녕, ",null,null],["world","세계",null,null]],null,"ko"]`)
	}))
	defer server.Close()

	wt := NewWebTranslator(server.URL, nil)
	out, err := wt.Translate(context.Background(), "안녕, 세계", "ko", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", out)
}

func TestWebTranslatorEmptyInput(t *testing.T) {
	wt := NewWebTranslator("http://invalid.localhost", nil)
	out, err := wt.Translate(context.Background(), "   ", "auto", "en")
	require.NoError(t, err)
	assert.Equal(t, "   ", out)
}

func TestCachedTranslatorHitsCacheOnSecondCall(t *testing.T) {
	ft := &fakeTranslator{}
	ct, err := NewCachedTranslator(ft, t.TempDir(), 0, nil)
	require.NoError(t, err)
	defer ct.Close()

	first, err := ct.Translate(context.Background(), "hello", "en", "ko")
	require.NoError(t, err)
	second, err := ct.Translate(context.Background(), "hello", "en", "ko")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, ft.calls, 1, "second call must be served from cache")

	// Different direction misses.
	_, err = ct.Translate(context.Background(), "hello", "en", "ja")
	require.NoError(t, err)
	assert.Len(t, ft.calls, 2)
}

func TestPipelineProcess(t *testing.T) {
	ft := &fakeTranslator{}
	p := NewPipeline(ft, nil)

	out, err := p.Process(context.Background(), "서울 날씨", func(_ context.Context, english string) (string, error) {
		require.True(t, strings.HasPrefix(english, "[ko→en]"))
		return "sunny", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "[en→ko]sunny", out)
}
