package arg

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"tabtime/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if tabtime is running and get tracking status",
	Run: func(cmd *cobra.Command, args []string) {
		conn, obj, err := trackerObject()
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		var result string
		err = obj.Call(ipc.InterfaceName+".GetStatus", 0).Store(&result)
		if err != nil {
			log.Fatal("Failed to call method:", err)
		}

		fmt.Println("tabtime Status:", result)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
