package arg

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tabtime/internal/ipc"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all recorded time entries",
	Run: func(cmd *cobra.Command, args []string) {
		if !resetYes {
			fmt.Print("Are you sure you want to reset all data? This action cannot be undone. [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Println("Aborted.")
				return
			}
		}

		conn, obj, err := trackerObject()
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		err = obj.Call(ipc.InterfaceName+".Reset", 0).Store()
		if err != nil {
			log.Fatal("Failed to call method:", err)
		}

		fmt.Println("All data has been reset.")
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
