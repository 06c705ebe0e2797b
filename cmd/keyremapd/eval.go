package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newEvalCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Send one eval expression to a running daemon over its control socket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.Dial("unix", v.GetString("socket"))
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}
			defer conn.Close()

			if _, err := fmt.Fprintln(conn, strings.TrimSpace(args[0])); err != nil {
				return fmt.Errorf("eval: %w", err)
			}

			reply, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				return fmt.Errorf("eval: %w", err)
			}

			reply = strings.TrimSuffix(reply, "\n")
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			if strings.HasPrefix(reply, "ERROR") {
				return fmt.Errorf("eval: rejected")
			}
			return nil
		},
	}
}
