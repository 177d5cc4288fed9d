package state_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/state"
	"github.com/zsprackett/cursor-usage/internal/usage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotReplace(t *testing.T) {
	st := state.New(config.LanguageEnglish, config.IntervalOneMinute, nil, discardLogger())
	if !st.Snapshot().Pending() {
		t.Error("initial snapshot should be pending")
	}
	st.SetSnapshot(usage.Snapshot{Used: 1, Total: 2, Email: "a@b.c"})
	st.SetSnapshot(usage.Snapshot{Error: "boom"})
	got := st.Snapshot()
	if got.Email != "" || got.Used != 0 || got.Error != "boom" {
		t.Errorf("snapshot should be replaced wholesale, got %+v", got)
	}
}

func TestSetPreferencesPersists(t *testing.T) {
	var saved []config.Interval
	var langs []config.Language
	save := func(l config.Language, i config.Interval) error {
		langs = append(langs, l)
		saved = append(saved, i)
		return nil
	}
	st := state.New(config.LanguageChinese, config.IntervalFiveMinutes, save, discardLogger())

	st.SetInterval(config.IntervalOneHour)
	st.SetLanguage(config.LanguageEnglish)

	if st.Interval() != config.IntervalOneHour || st.Language() != config.LanguageEnglish {
		t.Errorf("got %v/%v", st.Language(), st.Interval())
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saves, got %d", len(saved))
	}
	if saved[1] != config.IntervalOneHour || langs[1] != config.LanguageEnglish {
		t.Errorf("last save should carry both current values, got %v/%v", langs[1], saved[1])
	}
}

func TestSaveRetriedOnceThenSwallowed(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	calls := 0
	st := state.New(config.LanguageChinese, config.IntervalFiveMinutes, func(config.Language, config.Interval) error {
		calls++
		return errors.New("read-only file system")
	}, logger)

	st.SetLanguage(config.LanguageEnglish)

	if calls != 2 {
		t.Errorf("save attempts: got %d want 2", calls)
	}
	if st.Language() != config.LanguageEnglish {
		t.Error("in-memory value must change even if save fails")
	}
	if !strings.Contains(buf.String(), "preferences not saved") {
		t.Errorf("expected error log, got %q", buf.String())
	}
}

func TestSaveSucceedsOnRetry(t *testing.T) {
	calls := 0
	st := state.New(config.LanguageChinese, config.IntervalFiveMinutes, func(config.Language, config.Interval) error {
		calls++
		if calls == 1 {
			return errors.New("busy")
		}
		return nil
	}, discardLogger())
	st.SetInterval(config.IntervalTenMinutes)
	if calls != 2 {
		t.Errorf("save attempts: got %d want 2", calls)
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := state.New(config.LanguageChinese, config.IntervalFiveMinutes, func(config.Language, config.Interval) error { return nil }, discardLogger())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func(n int) {
			defer wg.Done()
			st.SetSnapshot(usage.Snapshot{Used: n})
		}(i)
		go func() {
			defer wg.Done()
			_ = st.Snapshot()
			_ = st.Interval()
		}()
		go func() {
			defer wg.Done()
			st.SetLanguage(st.Language().Toggle())
		}()
	}
	wg.Wait()
}

func TestSettingsSubscribers(t *testing.T) {
	st := state.New(config.LanguageChinese, config.IntervalFiveMinutes, nil, discardLogger())
	type change struct {
		lang     config.Language
		interval config.Interval
	}
	var a, b []change
	st.OnSettingsChanged(func(l config.Language, i config.Interval) { a = append(a, change{l, i}) })
	st.OnSettingsChanged(func(l config.Language, i config.Interval) { b = append(b, change{l, i}) })

	st.SetLanguage(config.LanguageEnglish)
	st.SetInterval(config.IntervalOneHour)

	want := []change{
		{config.LanguageEnglish, config.IntervalFiveMinutes},
		{config.LanguageEnglish, config.IntervalOneHour},
	}
	for name, got := range map[string][]change{"first": a, "second": b} {
		if len(got) != len(want) {
			t.Fatalf("%s subscriber: got %d calls want %d", name, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s subscriber call %d: got %+v want %+v", name, i, got[i], want[i])
			}
		}
	}
}
