package kv

import (
	"fmt"

	"github.com/ValentinKolb/sdb/lib/db"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	insertCmd = &cobra.Command{
		Use:   "insert [key] [value]",
		Short: "Creates a key, fails if the key already exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(engine db.Engine) error {
				res, err := engine.Insert(args[0], []byte(args[1]))
				if err != nil {
					return err
				}
				printWriteResult("insert", res)
				return nil
			})
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [key] [value]",
		Short: "Replaces the value of an existing key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(engine db.Engine) error {
				res, err := engine.Update(args[0], []byte(args[1]))
				if err != nil {
					return err
				}
				printWriteResult("update", res)
				return nil
			})
		},
	}
	selectCmd = &cobra.Command{
		Use:   "select [key]",
		Short: "Reads the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf []byte
			if size := viper.GetInt("buffer-size"); size > 0 {
				buf = make([]byte, size)
			}
			return withEngine(func(engine db.Engine) error {
				res, err := engine.Select(args[0], buf)
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, size=%d, truncated=%t, value=%s\n", args[0], res.Size, res.Truncated, res.Value)
				return nil
			})
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(engine db.Engine) error {
				if err := engine.Delete(args[0]); err != nil {
					return err
				}
				fmt.Println("delete successfully")
				return nil
			})
		},
	}
	existCmd = &cobra.Command{
		Use:   "exist [key]",
		Short: "Checks if a key exists and prints the size of its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(engine db.Engine) error {
				size, ok, err := engine.Exist(args[0])
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, exists=%t, size=%d\n", args[0], ok, size)
				return nil
			})
		},
	}
)

func printWriteResult(op string, res db.WriteResult) {
	if res.CapacityExhausted {
		fmt.Printf("%s: storage capacity exhausted (wrote %d of %d bytes)\n", op, res.Written, res.Requested)
		return
	}
	fmt.Printf("%s successfully (%d bytes)\n", op, res.Written)
}
