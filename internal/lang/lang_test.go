package lang

import (
	"math"
	"sync"
	"testing"

	"github.com/John-Robertt/cinelist/internal/domain"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(16)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return r
}

func TestResolve_Table(t *testing.T) {
	r := newResolver(t)
	cases := []struct {
		in     string
		want   domain.Language
		wantOK bool
	}{
		{"tamil", domain.Tamil, true},
		{"Tamill", domain.Tamil, true},
		{"  HINDI  ", domain.Hindi, true},
		{"Hïndi", domain.Hindi, true},
		{"malayalm", domain.Malayalam, true},
		{"punjbi", domain.Punjabi, true},
		{"kanada", domain.Kannada, true},
		{"marati", domain.Marathi, true},
		{"telgu", domain.Telugu, true},
		{"tel", "", false},
		{"bangla", "", false},
		{"Xyzzy", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, ok := r.Resolve(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("Resolve(%q) 期望 (%q,%v)，实际 (%q,%v)", tc.in, tc.want, tc.wantOK, got, ok)
		}
		if ok && !got.Valid() {
			t.Fatalf("Resolve(%q) 输出 %q 不在支持的语言中", tc.in, got)
		}
	}
}

func TestResolve_EveryLanguageMapsToItself(t *testing.T) {
	r := newResolver(t)
	for _, l := range domain.Languages {
		got, ok := r.Resolve(string(l))
		if !ok || got != l {
			t.Fatalf("Resolve(%q) 期望自身，实际 (%q,%v)", l, got, ok)
		}
	}
}

func TestResolve_CanonicalNameSkipsMemo(t *testing.T) {
	r := newResolver(t)
	for _, in := range []string{"tamil", " Hindi ", "BENGALI"} {
		if _, ok := r.Resolve(in); !ok {
			t.Fatalf("Resolve(%q) 期望命中", in)
		}
	}
	if n := r.memo.Len(); n != 0 {
		t.Fatalf("规范名不应写入 memo，实际 %d 条", n)
	}
}

func TestMatch_TieKeepsEnumerationOrder(t *testing.T) {
	langs := []domain.Language{"abcd", "abce"}
	got, ok := Match(langs, "abc")
	if !ok || got != "abcd" {
		t.Fatalf("平局应取靠前者，实际 (%q,%v)", got, ok)
	}
	got, _ = Match([]domain.Language{"abce", "abcd"}, "abc")
	if got != "abce" {
		t.Fatalf("平局应取靠前者，实际 %q", got)
	}
}

func TestRatio(t *testing.T) {
	if v := Ratio("tamil", "tamill"); math.Abs(v-10.0/11.0) > 1e-9 {
		t.Fatalf("期望 10/11，实际 %v", v)
	}
	if v := Ratio("hindi", "hindi"); v != 1 {
		t.Fatalf("相同字符串期望 1，实际 %v", v)
	}
	if v := Ratio("abc", "xyz"); v != 0 {
		t.Fatalf("无公共字符期望 0，实际 %v", v)
	}
}

func TestResolve_MemoConcurrent(t *testing.T) {
	r := newResolver(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, ok := r.Resolve("Tamill"); !ok || got != domain.Tamil {
				t.Errorf("并发解析结果不一致：(%q,%v)", got, ok)
			}
		}()
	}
	wg.Wait()
	if r.memo.Len() != 1 {
		t.Fatalf("期望 memo 只有 1 条，实际 %d", r.memo.Len())
	}
}
