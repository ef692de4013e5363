package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"

	"tabtime/internal/bridge"
	"tabtime/internal/config"
	"tabtime/internal/eventhub"
	"tabtime/internal/ipc"
	"tabtime/internal/store"
	"tabtime/internal/track"
)

func main() {
	// check for argument to determine config location
	argPath := os.ExpandEnv("$HOME/.config/tabtime/config.toml")
	if len(os.Args) > 1 {
		argPath = os.Args[1]
	}
	log.Println("Using config file at:", argPath)
	cfg, err := config.LoadConfigFromFile(argPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// initialize the record store
	recordStore, err := store.NewManager(cfg.StatePath)
	if err != nil {
		log.Fatal("Failed to initialize record store:", err)
	}
	log.Println("Record store at:", cfg.StatePath)

	var sender track.Sender
	if cfg.EventHub.Enabled {
		log.Printf("Forwarding records to event hub %s/%s", cfg.EventHub.Namespace, cfg.EventHub.Hub)
		sender = eventhub.NewSender(eventhub.Config{
			Namespace: cfg.EventHub.Namespace,
			Hub:       cfg.EventHub.Hub,
			KeyName:   cfg.EventHub.KeyName,
			Key:       cfg.EventHub.Key,
		}, nil, nil)
	}

	tracker := track.New(recordStore, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	var wg sync.WaitGroup

	// Start the event bridge (browser extension feed)
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv := bridge.NewServer(tracker, cfg.Listen)
		if err := srv.Run(ctx); err != nil {
			log.Println("event bridge error:", err)
		}
	}()

	// Start the D-Bus control service (ttctl)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Opening session D-Bus service...")
		if err := serveTracker(ctx, recordStore, tracker); err != nil {
			log.Println("tabtime service error:", err)
		}
	}()

	wg.Wait()

	// Daemon exit ends attribution for everything still open; close the
	// sessions and let in-flight deliveries finish.
	tracker.CloseAll()
	tracker.Wait()
	fmt.Println("Shutdown complete")
}

func serveTracker(ctx context.Context, recordStore *store.Manager, tracker *track.Tracker) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(ipc.ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil || reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("failed to request name: %w", err)
	}

	svc := &ipc.TrackerService{Store: recordStore, Tracker: tracker}
	err = conn.Export(svc, dbus.ObjectPath(ipc.ObjectPath), ipc.InterfaceName)
	if err != nil {
		return fmt.Errorf("failed to export interface: %w", err)
	}

	<-ctx.Done()
	return nil
}
