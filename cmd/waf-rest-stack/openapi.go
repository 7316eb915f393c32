package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lex00/waf-rest-stack-go/internal/openapi"
	"github.com/lex00/waf-rest-stack-go/internal/stack"
)

func newOpenAPICmd(opts *globalOptions) *cobra.Command {
	var (
		apiID      string
		outputFile string
		deployed   bool
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Export the API routes as a Swagger 2.0 document",
		Long: `OpenAPI exports the routes of the REST API with
x-amazon-apigateway-integration extensions.

With --deployed, integration URIs and the host are resolved against the
deployed stack; otherwise they are left as CloudFormation intrinsics.

Examples:
    waf-rest-stack openapi
    waf-rest-stack openapi --deployed -o swagger.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := opts.loadStack()
			if err != nil {
				return err
			}

			var exportOpts openapi.Options
			if deployed {
				d, err := newDeployer(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				env, err := d.Env(cmd.Context())
				if err != nil {
					return err
				}
				exportOpts.Env = &env
			}

			return runOpenAPI(cmd.OutOrStdout(), s, apiID, outputFile, exportOpts)
		},
	}

	cmd.Flags().StringVar(&apiID, "api", "", "API construct id (default: the first API)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&deployed, "deployed", false, "Resolve values against the deployed stack")

	return cmd
}

func runOpenAPI(w io.Writer, s *stack.Stack, apiID, outputFile string, opts openapi.Options) error {
	apis := s.Apis()
	if len(apis) == 0 {
		return fmt.Errorf("stack %s defines no API", s.Name())
	}

	api := apis[0]
	if apiID != "" {
		api = nil
		for _, a := range apis {
			if a.ID == apiID {
				api = a
				break
			}
		}
		if api == nil {
			return fmt.Errorf("no API with id %q", apiID)
		}
	}

	data, err := openapi.Render(api, opts)
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Fprintln(w, string(data))
		return nil
	}
	return os.WriteFile(outputFile, data, 0644)
}
