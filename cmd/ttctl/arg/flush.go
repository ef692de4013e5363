package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"tabtime/internal/ipc"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Close all open sessions and record them now",
	Run: func(cmd *cobra.Command, args []string) {
		conn, obj, err := trackerObject()
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		err = obj.Call(ipc.InterfaceName+".Flush", 0).Store()
		if err != nil {
			log.Fatal("Failed to call method:", err)
		}

		fmt.Println("Open sessions closed.")
	},
}

func init() {
	rootCmd.AddCommand(flushCmd)
}
