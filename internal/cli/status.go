package cli

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/harun/logstream/pkg/gateway"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Show whether the log stream server is running and, when its health
endpoint answers, which clients are connected and what they are reading.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := getPIDFilePath()

	if !isRunning(path) {
		fmt.Fprintln(out, "Status: stopped")
		return nil
	}

	pid, err := readPID(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Status: running")
	fmt.Fprintf(out, "PID: %d\n", pid)
	if info, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Uptime: %s\n", formatDuration(time.Since(info.ModTime())))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	health, err := fetchHealth("http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)) + "/healthz")
	if err != nil {
		fmt.Fprintf(out, "Health: unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "Health: %s\n", health.Status)
	fmt.Fprintf(out, "Clients: %d\n", health.Clients)
	for _, sess := range health.Sessions {
		state := "active"
		if sess.Idle {
			state = "idle"
		}
		fmt.Fprintf(out, "  %s %s (%s, connected %s)\n",
			sess.IPAddress, sess.Path, state, formatDuration(time.Since(sess.ConnectedAt)))
	}
	return nil
}

func fetchHealth(url string) (*gateway.HealthStatus, error) {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var status gateway.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &status, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
