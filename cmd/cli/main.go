package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "sonic-extract",
		Short: "Sonic-Extract CLI - Media download and audio conversion manager",
		Long:  `A command-line interface for managing media downloads and audio conversions.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(historyCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Submit a media download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		payload := map[string]string{"url": args[0]}
		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/tasks/downloads", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Download task submitted!\n")
		fmt.Printf("ID: %s\n", result["id"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Submit an audio conversion",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		format, _ := cmd.Flags().GetString("format")
		bitrate, _ := cmd.Flags().GetInt("bitrate")
		sampleRate, _ := cmd.Flags().GetInt("sample-rate")
		channels, _ := cmd.Flags().GetInt("channels")
		quality, _ := cmd.Flags().GetInt("quality")

		payload := map[string]interface{}{
			"input":  args[0],
			"output": args[1],
			"options": map[string]interface{}{
				"format":         format,
				"bitrate_kbps":   bitrate,
				"sample_rate_hz": sampleRate,
				"channels":       channels,
				"quality":        quality,
			},
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/tasks/conversions", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Conversion task submitted!\n")
		fmt.Printf("ID: %s\n", result["id"])
		fmt.Printf("Status: %s\n", result["status"])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")
		kind, _ := cmd.Flags().GetString("kind")

		url := serverURL + "/api/v1/tasks"
		sep := "?"
		if status != "" {
			url += sep + "status=" + status
			sep = "&"
		}
		if kind != "" {
			url += sep + "kind=" + kind
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var tasks []map[string]interface{}
		json.Unmarshal(body, &tasks)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tINPUT\tSTATUS\tPROGRESS")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v%%\n",
				truncate(stringField(t, "id"), 8),
				t["kind"],
				truncate(stringField(t, "input"), 40),
				t["status"],
				t["progress"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Get(serverURL + "/api/v1/tasks/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Task Statistics:")
		fmt.Printf("  Total:     %v\n", stats["total"])
		fmt.Printf("  Pending:   %v\n", stats["pending"])
		fmt.Printf("  Active:    %v\n", stats["active"])
		fmt.Printf("  Paused:    %v\n", stats["paused"])
		fmt.Printf("  Completed: %v\n", stats["completed"])
		fmt.Printf("  Failed:    %v\n", stats["failed"])
		fmt.Printf("  Cancelled: %v\n", stats["cancelled"])
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get task details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Get(serverURL + "/api/v1/tasks/" + args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var task map[string]interface{}
		json.Unmarshal(body, &task)

		fmt.Printf("Task Details:\n")
		fmt.Printf("  ID:       %s\n", task["id"])
		fmt.Printf("  Kind:     %s\n", task["kind"])
		fmt.Printf("  Input:    %s\n", task["input"])
		fmt.Printf("  Status:   %s\n", task["status"])
		fmt.Printf("  Progress: %v%%\n", task["progress"])
		fmt.Printf("  Created:  %s\n", task["created_at"])
		if task["output"] != nil && task["output"] != "" {
			fmt.Printf("  Output:   %s\n", task["output"])
		}
		if task["error_message"] != nil && task["error_message"] != "" {
			fmt.Printf("  Error:    %s\n", task["error_message"])
		}
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause an active download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postAction(args[0], "pause", "Pause requested")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postAction(args[0], "resume", "Task queued for resume")
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		postAction(args[0], "cancel", "Cancel requested")
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished tasks",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/history"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var records []map[string]interface{}
		json.Unmarshal(body, &records)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tTITLE\tSTATUS\tFINISHED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(stringField(r, "id"), 8),
				r["kind"],
				truncate(stringField(r, "title"), 30),
				r["status"],
				r["finished_at"])
		}
		w.Flush()
	},
}

// postAction sends a lifecycle action for a task
func postAction(id, action, successMsg string) {
	resp, err := http.Post(serverURL+"/api/v1/tasks/"+id+"/"+action, "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
		os.Exit(1)
	}
	fmt.Println(successMsg)
}

func init() {
	convertCmd.Flags().StringP("format", "f", "mp3", "Target format (mp3, aac, wav, flac)")
	convertCmd.Flags().IntP("bitrate", "b", 320, "Bitrate in kbps")
	convertCmd.Flags().Int("sample-rate", 44100, "Sample rate in Hz")
	convertCmd.Flags().Int("channels", 2, "Channel count (1 or 2)")
	convertCmd.Flags().IntP("quality", "q", 0, "VBR quality (0-9)")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringP("kind", "k", "", "Filter by kind (download, conversion)")
	historyCmd.Flags().StringP("status", "s", "", "Filter by status")
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
