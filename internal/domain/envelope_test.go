package domain

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewListingResult_HasMoreFollowsMovies(t *testing.T) {
	empty := NewListingResult(Tamil, CategoryRecent, 3, nil)
	if empty.HasMore {
		t.Fatalf("movies 为空时 has_more 必须为 false")
	}
	if empty.NextPage != 0 {
		t.Fatalf("movies 为空时期望 next_page=0，实际=%d", empty.NextPage)
	}
	b, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"movies":[]`)) {
		t.Fatalf("movies 必须序列化为空数组：%s", string(b))
	}

	one := NewListingResult(Hindi, CategoryPopular, 1, []ListingEntry{{Title: "A", DetailURL: "https://x.test/a"}})
	if !one.HasMore || one.NextPage != 2 {
		t.Fatalf("期望 has_more=true next_page=2，实际 %+v", one)
	}
}

func TestNewDetailResult_NullVideo(t *testing.T) {
	r := NewDetailResult(VideoResolution{Title: "Jailer"})
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if string(b) != `{"title":"Jailer","video_url":null}` {
		t.Fatalf("输出不符合契约：%s", string(b))
	}

	r = NewDetailResult(VideoResolution{VideoURL: "https://cdn.test/etv/a.mp4"})
	if r.Title != UntitledTitle {
		t.Fatalf("标题为空时期望兜底值，实际=%q", r.Title)
	}
	if r.VideoURL == nil || *r.VideoURL != "https://cdn.test/etv/a.mp4" {
		t.Fatalf("video_url 不符合预期：%v", r.VideoURL)
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"", CategoryRecent, false},
		{"recent", CategoryRecent, false},
		{" Popular ", CategoryPopular, false},
		{"trending", "", true},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q：期望错误，但得到 nil", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q：期望 %q，实际 %q err=%v", tc.in, tc.want, got, err)
		}
	}
}

func TestErrorCode(t *testing.T) {
	if ErrorCode(InvalidInput("x")) != ErrCodeInvalidInput {
		t.Fatalf("期望 invalid_input")
	}
	if ErrorCode(Upstream("fetch", bytes.ErrTooLarge)) != ErrCodeUpstreamUnavailable {
		t.Fatalf("期望 upstream_unavailable")
	}
	if ErrorCode(bytes.ErrTooLarge) != "" {
		t.Fatalf("非 *Error 应返回空串")
	}
}
