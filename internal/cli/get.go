package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	gsweb "github.com/megaganjotsingh/GSWebServiceHelper"
	"github.com/megaganjotsingh/GSWebServiceHelper/client"
)

func newGetCmd(root *rootFlags) *cobra.Command {
	var (
		method string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Load a resource and print its body",
		Long: `Load a resource relative to base_url and print the JSON body.

Example:
  gsweb get users/42
  gsweb get search --param q=golang --param page=2
  gsweb get users --method POST --param name=alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := parseParams(params)
			if err != nil {
				return err
			}

			m := client.Method(strings.ToUpper(method))
			switch m {
			case client.MethodGet, client.MethodPost, client.MethodPut, client.MethodDelete:
			default:
				return fmt.Errorf("unsupported method %q", method)
			}

			s, err := loadStack(root, newLogger(cmd.ErrOrStderr(), root.verbose))
			if err != nil {
				return err
			}

			c, err := s.client()
			if err != nil {
				return fmt.Errorf("failed to build client: %w", err)
			}
			<-c.RefreshDone()

			res := gsweb.NewResource[json.RawMessage](args[0], client.WithMethod(m), client.WithParams(kv))

			r := client.Fetch(cmd.Context(), c, res)
			if body, ok := r.Value(); ok {
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
				return nil
			}

			werr := r.Err()
			if msg := gsweb.Alert(werr); msg != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), errorColor("%s", msg))
			}

			return fmt.Errorf("%s %s: %w", m, args[0], werr)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Request parameter as key=value (repeatable)")

	return cmd
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	kv := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, errors.New("param must be key=value, got " + p)
		}
		kv[k] = v
	}

	return kv, nil
}
