package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestAlignFromTo(t *testing.T) {
    from := time.Date(2024, 10, 10, 10, 10, 10, 500_000_000, time.UTC)
    to := time.Date(2024, 10, 10, 9, 0, 0, 250_000_000, time.UTC)
    gotFrom, gotTo := AlignFromTo(from, to)
    if gotFrom.Nanosecond() != 0 || gotTo.Nanosecond() != 0 {
        t.Fatalf("expected whole seconds, got %v %v", gotFrom, gotTo)
    }
    if gotTo.Before(gotFrom) {
        t.Fatalf("expected ordered bounds, got %v > %v", gotFrom, gotTo)
    }
}