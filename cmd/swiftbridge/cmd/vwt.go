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
	"runtime"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blacktop/swiftbridge/internal/colors"
	"github.com/blacktop/swiftbridge/internal/swift"
	"github.com/blacktop/swiftbridge/pkg/ptrauth"
	"github.com/blacktop/swiftbridge/pkg/swiftrt"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func defaultSwiftCore() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/swift/libswiftCore.dylib"
	}
	return "libswiftCore.so"
}

func init() {
	rootCmd.AddCommand(vwtCmd)

	vwtCmd.Flags().StringP("image", "i", defaultSwiftCore(), "Image exporting the type metadata")
	vwtCmd.Flags().BoolP("slots", "s", false, "Print the witness slots with their discriminators")

	viper.BindPFlag("vwt.image", vwtCmd.Flags().Lookup("image"))
	viper.BindPFlag("vwt.slots", vwtCmd.Flags().Lookup("slots"))
}

// vwtCmd represents the vwt command
var vwtCmd = &cobra.Command{
	Use:   "vwt <TYPE_METADATA>",
	Short: "Print the value witness table of a type",
	Example: heredoc.Doc(`
		# Int from the system libswiftCore
		❯ swiftbridge vwt '$sSiN'
		# String, with the witness slot discriminators
		❯ swiftbridge vwt '$sSSN' --slots`),
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return errors.Wrapf(err, "failed to load config")
		}

		img, err := openImage(viper.GetString("vwt.image"))
		if err != nil {
			return err
		}
		defer img.Close()

		name := dlsymName(args[0])
		md, err := img.lookup(name)
		if err != nil {
			return err
		}
		if out, err := swift.Demangle(name); err == nil && out != name {
			fmt.Println(colors.Symbol().Sprint(out))
		}
		addr, isEnum := printLayout(md)

		if viper.GetBool("vwt.slots") {
			slots := swiftrt.ValueWitnessSlots
			if isEnum {
				slots = swiftrt.EnumValueWitnessSlots
			}
			printSlots(addr, slots)
		}
		return nil
	},
}

// printLayout prints the value witness table of metadata and returns its
// address and whether it carries the enum witnesses.
func printLayout(metadata uintptr) (uintptr, bool) {
	addr, layout, isEnum := valueWitnesses(metadata)

	flag := func(name string, set bool) string {
		if set {
			return colors.Set().Sprint(name)
		}
		return colors.Unset().Sprint(name)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "metadata:\t%s\n", colors.Address().Sprintf("%#x", metadata))
	fmt.Fprintf(w, "witnesses:\t%s\n", colors.Address().Sprintf("%#x", addr))
	fmt.Fprintf(w, "size:\t%d (%s)\n", layout.Size, humanize.IBytes(layout.Size))
	fmt.Fprintf(w, "stride:\t%d (%s)\n", layout.Stride, humanize.IBytes(layout.Stride))
	fmt.Fprintf(w, "alignment:\t%d\n", layout.Flags.Alignment())
	fmt.Fprintf(w, "extra inhabitants:\t%s\n", humanize.Comma(int64(layout.ExtraInhabitantCount)))
	fmt.Fprintf(w, "flags:\t%#08x %s %s %s %s %s %s\n", uint32(layout.Flags),
		flag("pod", layout.Flags.IsPOD()),
		flag("inline", layout.Flags.IsInlineStorage()),
		flag("bitwise-takable", layout.Flags.IsBitwiseTakable()),
		flag("bitwise-borrowable", layout.Flags.IsBitwiseBorrowable()),
		flag("copyable", layout.Flags.IsCopyable()),
		flag("enum", isEnum))
	w.Flush()
	return addr, isEnum
}

func printSlots(table uintptr, slots []swiftrt.Slot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintln(w, "\nslot\toffset\tdisc\tblended")
	for _, s := range slots {
		fmt.Fprintf(w, "%s\t%#x\t%s\t%s\n",
			s.Name,
			s.Offset(),
			colors.Discriminator().Sprintf("%#04x", s.Discriminator),
			colors.Discriminator().Sprintf("%#016x", ptrauth.Blend(table+s.Offset(), uint64(s.Discriminator))))
	}
	w.Flush()
}
