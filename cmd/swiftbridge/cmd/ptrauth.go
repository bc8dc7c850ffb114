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

	"github.com/apex/log"
	"github.com/blacktop/swiftbridge/internal/colors"
	"github.com/blacktop/swiftbridge/internal/config"
	"github.com/blacktop/swiftbridge/internal/utils"
	"github.com/blacktop/swiftbridge/pkg/ptrauth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(ptrauthCmd)
	ptrauthCmd.AddCommand(ptrauthSignCmd)
	ptrauthCmd.AddCommand(ptrauthStripCmd)
	ptrauthCmd.AddCommand(ptrauthBlendCmd)

	ptrauthCmd.PersistentFlags().Bool("software", false, "Use the software authenticator even on arm64e")
	ptrauthSignCmd.Flags().StringP("key", "k", "ia", "Signing key (ia, ib, da, db)")
	ptrauthSignCmd.Flags().StringP("disc", "d", "0", "Discriminator")
	ptrauthSignCmd.Flags().StringP("addr", "a", "", "Storage address to blend into the discriminator")
	ptrauthStripCmd.Flags().StringP("key", "k", "ia", "Signing key (ia, ib, da, db)")

	viper.BindPFlag("ptrauth.software", ptrauthCmd.PersistentFlags().Lookup("software"))
	viper.BindPFlag("ptrauth.sign.key", ptrauthSignCmd.Flags().Lookup("key"))
	viper.BindPFlag("ptrauth.sign.disc", ptrauthSignCmd.Flags().Lookup("disc"))
	viper.BindPFlag("ptrauth.sign.addr", ptrauthSignCmd.Flags().Lookup("addr"))
	viper.BindPFlag("ptrauth.strip.key", ptrauthStripCmd.Flags().Lookup("key"))
}

func authenticator() (ptrauth.Authenticator, error) {
	c, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if c.Ptrauth.Software {
		return ptrauth.Software{}, nil
	}
	auth := ptrauth.Default()
	if !auth.Enabled() {
		log.Debug("pointer authentication not available; using software authenticator")
	}
	return auth, nil
}

func printPointer(label string, ptr uint64) {
	fmt.Printf("%-8s %s\n", label+":", colors.Address().Sprintf("%#016x", ptr))
}

// ptrauthCmd represents the ptrauth command
var ptrauthCmd = &cobra.Command{
	Use:     "ptrauth",
	Aliases: []string{"pac"},
	Short:   "Sign, strip and blend arm64e pointers",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// ptrauthSignCmd represents the ptrauth sign command
var ptrauthSignCmd = &cobra.Command{
	Use:           "sign <PTR>",
	Short:         "Sign a pointer without authenticating it",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authenticator()
		if err != nil {
			return errors.Wrapf(err, "failed to load config")
		}
		ptr, err := utils.ConvertStrToInt(args[0])
		if err != nil {
			return errors.Wrapf(err, "invalid pointer %s", args[0])
		}
		key, err := ptrauth.ParseKey(viper.GetString("ptrauth.sign.key"))
		if err != nil {
			return err
		}
		disc, err := utils.ConvertStrToInt(viper.GetString("ptrauth.sign.disc"))
		if err != nil {
			return errors.Wrapf(err, "invalid discriminator %s", viper.GetString("ptrauth.sign.disc"))
		}
		if addr := viper.GetString("ptrauth.sign.addr"); addr != "" {
			storage, err := utils.ConvertStrToInt(addr)
			if err != nil {
				return errors.Wrapf(err, "invalid address %s", addr)
			}
			disc = auth.Blend(uintptr(storage), disc)
			fmt.Printf("%-8s %s\n", "blended:", colors.Discriminator().Sprintf("%#016x", disc))
		}

		printPointer("raw", ptr)
		printPointer("signed", uint64(auth.Sign(uintptr(ptr), key, disc)))
		if !auth.Enabled() {
			log.Warn("signature not applied: pointer authentication unavailable")
		}
		return nil
	},
}

// ptrauthStripCmd represents the ptrauth strip command
var ptrauthStripCmd = &cobra.Command{
	Use:           "strip <PTR>",
	Short:         "Remove a pointer signature",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authenticator()
		if err != nil {
			return errors.Wrapf(err, "failed to load config")
		}
		ptr, err := utils.ConvertStrToInt(args[0])
		if err != nil {
			return errors.Wrapf(err, "invalid pointer %s", args[0])
		}
		key, err := ptrauth.ParseKey(viper.GetString("ptrauth.strip.key"))
		if err != nil {
			return err
		}
		printPointer("signed", ptr)
		printPointer("raw", uint64(auth.Strip(uintptr(ptr), key)))
		return nil
	},
}

// ptrauthBlendCmd represents the ptrauth blend command
var ptrauthBlendCmd = &cobra.Command{
	Use:           "blend <ADDR> <DISC>",
	Short:         "Blend a storage address with a 16-bit discriminator",
	Args:          cobra.ExactArgs(2),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authenticator()
		if err != nil {
			return errors.Wrapf(err, "failed to load config")
		}
		addr, err := utils.ConvertStrToInt(args[0])
		if err != nil {
			return errors.Wrapf(err, "invalid address %s", args[0])
		}
		disc, err := utils.ConvertStrToUint16(args[1])
		if err != nil {
			return errors.Wrapf(err, "invalid discriminator %s", args[1])
		}
		fmt.Println(colors.Discriminator().Sprintf("%#016x", auth.Blend(uintptr(addr), uint64(disc))))
		return nil
	},
}
