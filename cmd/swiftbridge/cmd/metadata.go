/*
Copyright © 2024-2026 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/swiftbridge/internal/colors"
	"github.com/blacktop/swiftbridge/internal/magic"
	"github.com/blacktop/swiftbridge/internal/swift"
	"github.com/blacktop/swiftbridge/internal/utils"
	"github.com/blacktop/swiftbridge/pkg/swiftrt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataCmd.Flags().String("arch", "", "Which architecture to use for fat/universal MachO")
	metadataCmd.Flags().Bool("demangle", false, "Demangle symbol names")
	metadataCmd.Flags().StringP("call", "c", "", "Metadata accessor to call")
	metadataCmd.Flags().StringArrayP("arg", "g", nil, "Type metadata symbol to pass as a generic argument (repeatable)")
	metadataCmd.Flags().StringP("state", "s", "complete", "Requested metadata state (complete, non-transitive, layout, abstract)")
	metadataCmd.Flags().Bool("non-blocking", false, "Do not wait for the metadata to reach the requested state")

	viper.BindPFlag("metadata.arch", metadataCmd.Flags().Lookup("arch"))
	viper.BindPFlag("metadata.demangle", metadataCmd.Flags().Lookup("demangle"))
	viper.BindPFlag("metadata.call", metadataCmd.Flags().Lookup("call"))
	viper.BindPFlag("metadata.arg", metadataCmd.Flags().Lookup("arg"))
	viper.BindPFlag("metadata.state", metadataCmd.Flags().Lookup("state"))
	viper.BindPFlag("metadata.non-blocking", metadataCmd.Flags().Lookup("non-blocking"))
}

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:     "metadata <IMAGE>",
	Aliases: []string{"md"},
	Short:   "List or call the Swift type metadata accessors of an image",
	Example: heredoc.Doc(`
		# list the accessors exported by a framework
		❯ swiftbridge metadata /usr/lib/swift/libswiftCore.dylib --demangle
		# call a generic accessor with Int as its argument
		❯ swiftbridge metadata /usr/lib/swift/libswiftCore.dylib --call '$sSaMa' --arg '$sSiN'`),
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return errors.Wrapf(err, "failed to load config")
		}

		if accessor := viper.GetString("metadata.call"); accessor != "" {
			state, err := parseMetadataState(viper.GetString("metadata.state"))
			if err != nil {
				return err
			}
			request := swiftrt.NewMetadataRequest(state, !viper.GetBool("metadata.non-blocking"))
			return callMetadataAccessor(args[0], dlsymName(accessor), request, viper.GetStringSlice("metadata.arg"))
		}

		if ok, err := magic.IsMachO(args[0]); !ok {
			if format, ferr := magic.Identify(args[0]); ferr == nil && format == magic.ELF {
				return fmt.Errorf("listing accessors needs a MachO; use --call to call into an ELF image")
			}
			return errors.Wrapf(err, "%s appears to not be a valid MachO", args[0])
		}

		m, closer, err := openMachO(args[0], viper.GetString("metadata.arch"))
		if err != nil {
			return errors.Wrapf(err, "%s appears to not be a valid MachO", args[0])
		}
		defer closer()

		syms := metadataAccessors(m)
		if len(syms) == 0 {
			log.Warn("no Swift metadata accessors found")
			return nil
		}
		log.WithField("count", len(syms)).Info("Swift metadata accessors")

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
		for _, sym := range syms {
			name := sym.Name
			if viper.GetBool("metadata.demangle") {
				if out, err := swift.Demangle(name); err == nil {
					name = out
				}
			}
			fmt.Fprintf(w, "%s\t%s\n", colors.Address().Sprintf("%#09x", sym.Address), colors.Symbol().Sprint(name))
		}
		return w.Flush()
	},
}

func callMetadataAccessor(path, accessor string, request swiftrt.MetadataRequest, args []string) error {
	img, err := openImage(path)
	if err != nil {
		return err
	}
	defer img.Close()

	for i, arg := range args {
		args[i] = dlsymName(arg)
		if !isTypeMetadata(args[i]) {
			log.Warnf("%s does not look like direct type metadata", arg)
		}
	}

	resp, err := img.callAccessor(accessor, request, args)
	if err != nil {
		return errors.Wrapf(err, "failed to call %s", accessor)
	}

	utils.Indent(log.Info, 1)(fmt.Sprintf("%s %s", request, resp))
	if resp.Metadata == 0 {
		return fmt.Errorf("%s returned no metadata", accessor)
	}
	if !resp.IsComplete() {
		log.Warnf("metadata is only %s", resp.MetadataState())
	}

	printLayout(resp.Metadata)
	return nil
}
