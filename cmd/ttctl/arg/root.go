package arg

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"tabtime/internal/ipc"
)

var rootCmd = &cobra.Command{
	Use:   "ttctl",
	Short: "ttctl is the command line tool for tabtime",
	Long: `ttctl talks to the tabtime daemon over D-Bus.
			You can use it to check tracking status, list recorded time entries,
			export them as CSV, and reset the collection.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Do Stuff Here
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// trackerObject connects to the session bus and returns the daemon's
// exported object. The caller closes the connection.
func trackerObject() (*dbus.Conn, dbus.BusObject, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	obj := conn.Object(ipc.ServiceName, dbus.ObjectPath(ipc.ObjectPath))
	return conn, obj, nil
}
