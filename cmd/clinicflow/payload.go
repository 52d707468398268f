package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicflow/internal/domain/department"
)

// payloadCmd runs department resolution and payload normalization offline.
func payloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Inspect department-specific payloads",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Resolve the department for an appointment type and normalize a payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, _ := cmd.Flags().GetString("type")
			code, _ := cmd.Flags().GetString("department")
			file, _ := cmd.Flags().GetString("file")
			existingFile, _ := cmd.Flags().GetString("existing")
			if typ == "" {
				return fmt.Errorf("--type is required")
			}

			raw, err := readJSON(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			var existing *department.Payload
			if existingFile != "" {
				b, err := readJSON(nil, existingFile)
				if err != nil {
					return err
				}
				existing = &department.Payload{}
				if err := json.Unmarshal(b, existing); err != nil {
					return fmt.Errorf("decode existing payload: %w", err)
				}
			}

			logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
			res, err := department.NewResolver(logger, nil).ResolveAndValidate(typ, code, raw, existing)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	validate.Flags().String("type", "", "Appointment type, e.g. physiotherapy")
	validate.Flags().String("department", "", "Explicit department code; overrides the type mapping")
	validate.Flags().String("file", "", "Payload JSON file; \"-\" reads stdin")
	validate.Flags().String("existing", "", "Stored payload envelope to merge over")
	cmd.AddCommand(validate)
	return cmd
}

// readJSON returns nil for an empty name.
func readJSON(stdin io.Reader, name string) (json.RawMessage, error) {
	var b []byte
	var err error
	switch name {
	case "":
		return nil, nil
	case "-":
		if stdin == nil {
			return nil, fmt.Errorf("stdin is not available")
		}
		b, err = io.ReadAll(stdin)
	default:
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%s is not valid JSON", name)
	}
	return b, nil
}
