package cups_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"autoprint/internal/config"
	"autoprint/internal/printsettings"
	"autoprint/internal/services"
	"autoprint/internal/services/cups"
)

type scriptedExecutor struct {
	outputs map[string][]string
	fail    map[string]bool
	calls   []string
}

func (s *scriptedExecutor) Run(_ context.Context, binary string, args []string, onOutput func(string)) error {
	key := strings.TrimSpace(binary + " " + strings.Join(args, " "))
	s.calls = append(s.calls, key)
	for _, line := range s.outputs[key] {
		onOutput(line)
	}
	if s.fail[key] {
		return errors.New("exit status 1")
	}
	return nil
}

func newClient(t *testing.T, exec *scriptedExecutor) *cups.Client {
	t.Helper()
	client, err := cups.New(config.Printer{Name: "Office_Laser"}, cups.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresPrinterName(t *testing.T) {
	if _, err := cups.New(config.Printer{}); err == nil {
		t.Fatal("expected error for empty printer name")
	}
}

func TestStatusDecoding(t *testing.T) {
	tests := []struct {
		name      string
		lpstatP   []string
		lpstatA   []string
		wantState services.PrinterState
		wantFault string
	}{
		{
			name:      "idle and accepting",
			lpstatP:   []string{"printer Office_Laser is idle.  enabled since Mon 01 Jun 2026 09:00:00"},
			lpstatA:   []string{"Office_Laser accepting requests since Mon 01 Jun 2026 09:00:00"},
			wantState: services.PrinterReady,
		},
		{
			name:      "printing",
			lpstatP:   []string{"printer Office_Laser now printing Office_Laser-41.  enabled since Mon 01 Jun 2026"},
			lpstatA:   []string{"Office_Laser accepting requests since Mon 01 Jun 2026"},
			wantState: services.PrinterBusy,
		},
		{
			name:      "disabled",
			lpstatP:   []string{"printer Office_Laser disabled since Mon 01 Jun 2026 -", "\tPaused"},
			wantState: services.PrinterOffline,
		},
		{
			name:      "idle but rejecting",
			lpstatP:   []string{"printer Office_Laser is idle.  enabled since Mon 01 Jun 2026"},
			lpstatA:   []string{"Office_Laser not accepting requests since Mon 01 Jun 2026 -", "\tRejecting Jobs"},
			wantState: services.PrinterFault,
			wantFault: "not-accepting",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &scriptedExecutor{outputs: map[string][]string{
				"lpstat -p Office_Laser": tc.lpstatP,
				"lpstat -a Office_Laser": tc.lpstatA,
			}}
			status, err := newClient(t, exec).Status(context.Background())
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if status.State != tc.wantState || status.Fault != tc.wantFault {
				t.Fatalf("got %+v, want state=%s fault=%q", status, tc.wantState, tc.wantFault)
			}
		})
	}
}

func TestStatusCommandFailureIsTransient(t *testing.T) {
	exec := &scriptedExecutor{
		outputs: map[string][]string{"lpstat -p Office_Laser": {"lpstat: Invalid destination name in list \"Office_Laser\"."}},
		fail:    map[string]bool{"lpstat -p Office_Laser": true},
	}
	status, err := newClient(t, exec).Status(context.Background())
	if !errors.Is(err, services.ErrTransientDevice) {
		t.Fatalf("expected transient device error, got %v", err)
	}
	if status.State != services.PrinterFault || status.Fault != "unknown-printer" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitParsesRequestID(t *testing.T) {
	settings := printsettings.Settings{Copies: 2, Duplex: true, DuplexMode: printsettings.DuplexShortEdge, PaperSize: "A4", Orientation: "landscape", TonerSave: true}
	key := "lp -d Office_Laser " + strings.Join(cups.Options(settings), " ") + " -- /inbox/report.pdf"
	exec := &scriptedExecutor{outputs: map[string][]string{
		key: {"request id is Office_Laser-42 (1 file(s))"},
	}}
	handle, err := newClient(t, exec).Submit(context.Background(), "/inbox/report.pdf", settings)
	if err != nil {
		t.Fatalf("Submit: %v (calls %v)", err, exec.calls)
	}
	if handle != "Office_Laser-42" {
		t.Fatalf("handle = %q", handle)
	}
}

func TestSubmitUnsupportedFormatIsPermanent(t *testing.T) {
	settings := printsettings.Settings{Copies: 1, PaperSize: "A4", Orientation: "portrait", DuplexMode: printsettings.DuplexLongEdge}
	key := "lp -d Office_Laser " + strings.Join(cups.Options(settings), " ") + " -- /inbox/x.pdf"
	exec := &scriptedExecutor{
		outputs: map[string][]string{key: {"lp: Unsupported document-format \"application/octet-stream\"."}},
		fail:    map[string]bool{key: true},
	}
	_, err := newClient(t, exec).Submit(context.Background(), "/inbox/x.pdf", settings)
	if !services.IsPermanent(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	got := strings.Join(cups.Options(printsettings.Settings{Copies: 1, PaperSize: "letter", Orientation: "portrait", Color: true}), " ")
	want := "-n 1 -o sides=one-sided -o media=LETTER -o orientation-requested=3 -o print-color-mode=color"
	if got != want {
		t.Fatalf("Options = %q, want %q", got, want)
	}
}

func TestPoll(t *testing.T) {
	tests := []struct {
		name       string
		pending    []string
		completed  []string
		wantPhase  services.PrintPhase
		wantErrSet bool
	}{
		{
			name:      "in progress",
			pending:   []string{"Office_Laser-42   alice   10240   Mon 01 Jun 2026 09:00:00"},
			wantPhase: services.PrintInProgress,
		},
		{
			name:      "completed",
			completed: []string{"Office_Laser-41   alice   2048   Mon 01 Jun 2026", "Office_Laser-42   alice   10240   Mon 01 Jun 2026"},
			wantPhase: services.PrintSucceeded,
		},
		{
			name: "completed with detail",
			completed: []string{
				"Office_Laser-42   alice   10240   Mon 01 Jun 2026 09:00:00",
				"\tStatus: ",
				"\tAlerts: job-completed-successfully",
				"\tqueued for Office_Laser",
			},
			wantPhase: services.PrintSucceeded,
		},
		{
			name: "aborted by printer",
			completed: []string{
				"Office_Laser-42   alice   10240   Mon 01 Jun 2026 09:00:00",
				"\tStatus: ",
				"\tAlerts: job-aborted-by-system",
				"\tqueued for Office_Laser",
				"Office_Laser-43   alice   2048   Mon 01 Jun 2026 09:05:00",
				"\tAlerts: job-completed-successfully",
			},
			wantPhase:  services.PrintFailed,
			wantErrSet: true,
		},
		{
			name: "canceled by operator",
			completed: []string{
				"Office_Laser-42   alice   10240   Mon 01 Jun 2026 09:00:00",
				"\tAlerts: job-canceled-by-user",
			},
			wantPhase:  services.PrintFailed,
			wantErrSet: true,
		},
		{
			name:       "vanished",
			completed:  []string{"Office_Laser-421   alice   10240   Mon 01 Jun 2026"},
			wantPhase:  services.PrintFailed,
			wantErrSet: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exec := &scriptedExecutor{outputs: map[string][]string{
				"lpstat -W not-completed -o Office_Laser": tc.pending,
				"lpstat -l -W completed -o Office_Laser":  tc.completed,
			}}
			status, err := newClient(t, exec).Poll(context.Background(), "Office_Laser-42")
			if err != nil {
				t.Fatalf("Poll: %v", err)
			}
			if status.Phase != tc.wantPhase {
				t.Fatalf("phase = %s, want %s", status.Phase, tc.wantPhase)
			}
			if (status.Err != nil) != tc.wantErrSet {
				t.Fatalf("unexpected err %v", status.Err)
			}
			if status.Err != nil && services.IsPermanent(status.Err) {
				t.Fatal("unsuccessful job should be transient")
			}
		})
	}
}

func TestCancel(t *testing.T) {
	exec := &scriptedExecutor{}
	if err := newClient(t, exec).Cancel(context.Background(), "Office_Laser-42"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0] != "cancel Office_Laser-42" {
		t.Fatalf("unexpected calls %v", exec.calls)
	}
}
