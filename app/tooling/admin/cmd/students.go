package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var serviceURL string

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage students through a running register service",
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.PersistentFlags().StringVar(&serviceURL, "url", "http://localhost:3000", "Base url of the register service.")

	studentsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Reload and list all students",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, http.MethodGet, "/v1/students", nil)
			},
		},
		&cobra.Command{
			Use:   "total",
			Short: "Print the number of registered students",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, http.MethodGet, "/v1/students/total", nil)
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Search for a student by id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, http.MethodGet, "/v1/students/"+args[0], nil)
			},
		},
		&cobra.Command{
			Use:   "register <name>",
			Short: "Register a student",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				body := struct {
					Name string `json:"name"`
				}{
					Name: args[0],
				}
				return call(cmd, http.MethodPost, "/v1/students", body)
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a student by id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return call(cmd, http.MethodDelete, "/v1/students/"+args[0], nil)
			},
		},
	)
}

// call executes the request against the service and prints the response.
func call(cmd *cobra.Command, method string, path string, body any) error {
	client := resty.New().
		SetBaseURL(serviceURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	req := client.R().SetContext(cmd.Context())
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("calling service: %w", err)
	}

	if resp.IsError() {
		var er struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if err := json.Unmarshal(resp.Body(), &er); err != nil || er.Error == "" {
			return fmt.Errorf("service returned %s", resp.Status())
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %v", er.Error, er.Fields)
		}
		return fmt.Errorf("%s", er.Error)
	}

	if len(resp.Body()) > 0 {
		var out bytes.Buffer
		if err := json.Indent(&out, resp.Body(), "", "  "); err != nil {
			out.Reset()
			out.Write(resp.Body())
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.String())
	}

	fmt.Fprintln(cmd.ErrOrStderr(), resp.Status(), time.Since(start).Round(time.Millisecond))

	return nil
}
