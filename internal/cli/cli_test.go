package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		args    []string
		want    models.Item
		wantErr bool
	}{
		{[]string{"apple", "3"}, models.NewItem("apple", 3), false},
		{[]string{"neg", "-2"}, models.NewItem("neg", -2), false},
		{[]string{"apple", "three"}, models.Item{}, true},
	}

	for _, tt := range tests {
		got, err := parseItem(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseItem(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseItem(%q) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestParseItemRandom(t *testing.T) {
	item, err := parseItem(nil)
	if err != nil {
		t.Fatalf("parseItem(nil) error = %v", err)
	}
	if !strings.HasPrefix(item.Name, "s") || item.Value < 0 || item.Value >= 20 {
		t.Errorf("parseItem(nil) = %v, want s<n> with value in 0..19", item)
	}
}

func TestResolveSettingsAppliesFlags(t *testing.T) {
	t.Setenv("TETHER_HOME", t.TempDir())
	saved := flags
	t.Cleanup(func() { flags = saved })

	flags = globalFlags{
		service:     "orders",
		namespace:   "shop",
		noAutoStart: true,
		timeout:     2 * time.Second,
		logLevel:    "debug",
	}
	s, err := resolveSettings()
	if err != nil {
		t.Fatalf("resolveSettings() error = %v", err)
	}
	if s.Service.Name != "orders" || s.Service.Namespace != "shop" {
		t.Errorf("service = %s/%s, want shop/orders", s.Service.Namespace, s.Service.Name)
	}
	if s.Daemon.AutoStart {
		t.Error("AutoStart = true, want false")
	}
	if got := s.CallTimeout(); got != 2*time.Second {
		t.Errorf("CallTimeout() = %v, want 2s", got)
	}
	if s.Client.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", s.Client.LogLevel)
	}
}

func TestResolveSettingsDefaults(t *testing.T) {
	t.Setenv("TETHER_HOME", t.TempDir())
	saved := flags
	t.Cleanup(func() { flags = saved })
	flags = globalFlags{}

	s, err := resolveSettings()
	if err != nil {
		t.Fatalf("resolveSettings() error = %v", err)
	}
	if s.Service.Name != models.DefaultService || s.Service.Namespace != models.DefaultNamespace {
		t.Errorf("service = %s/%s, want defaults", s.Service.Namespace, s.Service.Name)
	}
	if !s.Daemon.AutoStart {
		t.Error("AutoStart = false, want true by default")
	}
}

func TestConsoleSinkPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	c := &consoleSink{w: &buf, now: time.Now}

	c.SetStatus("service connected")
	c.ItemAdded(models.NewItem("a", 1))
	c.result("add a=1", nil)
	c.result("get", link.ErrNotReady)
	c.result("get", &link.TransportError{Op: "list", Err: errors.New("eof")})

	want := []string{
		"service connected",
		"item added: a=1",
		"add a=1 success",
		"attempting to reconnect, please retry later",
		"get failed: service connection lost",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIgnoreCanceled(t *testing.T) {
	if err := ignoreCanceled(context.Canceled); err != nil {
		t.Errorf("ignoreCanceled(Canceled) = %v, want nil", err)
	}
	if err := ignoreCanceled(context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ignoreCanceled(DeadlineExceeded) = %v, want DeadlineExceeded", err)
	}
}
