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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/swiftbridge/internal/colors"
	"github.com/blacktop/swiftbridge/internal/swift"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(demangleCmd)

	demangleCmd.Flags().BoolP("tree", "t", false, "Print the demangler node tree")
	demangleCmd.Flags().BoolP("simple", "s", false, "Print the simplified demangled name")
	demangleCmd.Flags().BoolP("blob", "b", false, "Demangle every symbol found in the input text")
	demangleCmd.MarkFlagsMutuallyExclusive("tree", "blob")

	viper.BindPFlag("demangle.tree", demangleCmd.Flags().Lookup("tree"))
	viper.BindPFlag("demangle.simple", demangleCmd.Flags().Lookup("simple"))
	viper.BindPFlag("demangle.blob", demangleCmd.Flags().Lookup("blob"))
}

// demangleCmd represents the demangle command
var demangleCmd = &cobra.Command{
	Use:     "demangle [SYMBOL...]",
	Aliases: []string{"d"},
	Short:   "Demangle Swift symbols with libswiftDemangle",
	Long: `Demangle Swift symbols with libswiftDemangle.

With no arguments, symbols (or text with --blob) are read from stdin.`,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return errors.Wrapf(err, "failed to load config")
		}

		tree := viper.GetBool("demangle.tree")
		simple := viper.GetBool("demangle.simple")
		blob := viper.GetBool("demangle.blob")

		if tree && simple {
			log.Warn("--simple has no effect with --tree")
		}

		inputs := args
		if len(inputs) == 0 {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				inputs = append(inputs, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return errors.Wrapf(err, "failed to read stdin")
			}
		}

		for _, in := range inputs {
			switch {
			case blob && simple:
				fmt.Println(swift.DemangleSimpleBlob(in))
			case blob:
				fmt.Println(swift.DemangleBlob(in))
			case tree:
				out, err := swift.NodeTree(strings.TrimSpace(in))
				if err != nil {
					return errors.Wrapf(err, "failed to demangle %s", in)
				}
				fmt.Printf("%s\n%s\n", colors.Symbol().Sprint(in), strings.TrimRight(out, "\n"))
			default:
				demangle := swift.Demangle
				if simple {
					demangle = swift.DemangleSimple
				}
				out, err := demangle(strings.TrimSpace(in))
				if err != nil {
					return errors.Wrapf(err, "failed to demangle %s", in)
				}
				fmt.Println(out)
			}
		}

		return nil
	},
}
