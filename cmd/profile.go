package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finprofile/internal/directory"
	"github.com/sells-group/finprofile/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile <cik|ticker>",
	Short: "Show the stored financial profile of a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		key, err := profileKey(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := st.GetProfile(ctx, key)
		if err != nil {
			return eris.Wrapf(err, "profile %s", args[0])
		}

		facts, err := st.CountFacts(ctx, p.CIK)
		if err != nil {
			return eris.Wrapf(err, "count facts for %s", p.CIK)
		}

		return writeProfile(cmd.OutOrStdout(), p, facts)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

// profileKey normalizes user input: numeric input is a CIK and gets padded,
// anything else is a ticker.
func profileKey(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", eris.New("profile: empty cik or ticker")
	}
	if strings.Trim(arg, "0123456789") == "" {
		return directory.PadCIK(arg)
	}
	return strings.ToUpper(arg), nil
}

func writeProfile(out io.Writer, p *model.FinancialProfile, facts int64) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "profile: encode")
	}
	_, _ = fmt.Fprintf(out, "%s (%s) cik=%s facts=%d\n", p.Name, p.Ticker, p.CIK, facts)
	_, _ = fmt.Fprintln(out, string(data))
	return nil
}
