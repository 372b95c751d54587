package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge"
	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/sensibo"

	"github.com/brutella/hap"
	"github.com/brutella/hap/log"

	"github.com/urfave/cli/v2"

	"github.com/vishvananda/netlink"
)

func main() {
	var dir, file string
	var debug bool

	app := cli.App{
		Name:  "sensibo homekit bridge",
		Usage: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "/var/db/HomeKitBridges/Sensibo",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Value:       "shkb.json",
				Usage:       "configuration file",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Value:       false,
				Usage:       "enable debug",
				Destination: &debug,
			},
		},
		Action: func(c *cli.Context) error {
			if debug {
				log.Debug.Enable()
			}

			fulldir, err := filepath.Abs(dir)
			if err != nil {
				log.Info.Panic("unable to get config directory", dir)
			}
			conf, err := sensibohkbridge.LoadConfig(filepath.Join(fulldir, file))
			if err != nil {
				log.Info.Panic(err.Error())
			}

			client, err := sensibo.NewClient(conf.APIKey, "", sensibo.Filter{
				LocationsToInclude: conf.LocationsToInclude,
				DevicesToExclude:   conf.DevicesToExclude,
			})
			if err != nil {
				log.Info.Panic(err.Error())
			}

			ctx, cancel := context.WithCancel(context.Background())
			var wg sync.WaitGroup

			st, err := sensibohkbridge.OpenStore(ctx, conf, fulldir)
			if err != nil {
				log.Info.Panic(err.Error())
			}

			// discover the pods and start polling
			platform := sensibohkbridge.NewPlatform(conf, client, st)
			if err := platform.Startup(ctx); err != nil {
				log.Info.Panic(err)
			}

			if conf.ListenAddr != "" {
				wg.Add(1)
				go func() {
					defer wg.Done()
					platform.HTTPServer(ctx, conf.ListenAddr)
				}()
			}

			// listen for interface status changes
			linkstatuschan := make(chan netlink.LinkUpdate, 5)
			disconnectchan := make(chan struct{})
			if err := netlink.LinkSubscribe(linkstatuschan, disconnectchan); err != nil {
				log.Info.Panic(err.Error())
			}

			// wait for signal to shut down
			sigch := make(chan os.Signal, 3)
			signal.Notify(sigch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

			// does not change over time
			poller := platform.Poller()
			bridge := sensibohkbridge.Bridge(poller.Interval(), poller.LastRefresh)
			var hapwaitgroup sync.WaitGroup

		DONE:
			for {
				hapctx, hapcancel := context.WithCancel(ctx)
				devices := platform.Devices()
				log.Info.Printf("serving %d sensibo accessories", len(devices))
				hapserver, err := hap.NewServer(hap.NewFsStore(fulldir), bridge, devices...)
				if err != nil {
					log.Info.Panic(err)
				}
				if conf.Pin != "" {
					hapserver.Pin = conf.Pin
				}

				// serve HomeKit
				hapwaitgroup.Add(1)
				go func() {
					defer hapwaitgroup.Done()
					hapserver.ListenAndServe(hapctx)
				}()

				select {
				case <-platform.Changed():
					log.Info.Printf("new accessories found, restarting")
					hapcancel()
					hapwaitgroup.Wait()
					// loop back around, getting updated device list
				case sig := <-sigch:
					log.Info.Printf("shutdown requested by signal: %s", sig)
					hapcancel()
					hapwaitgroup.Wait()
					break DONE
				case <-linkstatuschan:
					log.Info.Printf("interface change, refreshing")
					platform.RequestRefresh()
					hapcancel()
					hapwaitgroup.Wait()
					// loop back around
				}
			}
			close(disconnectchan)
			cancel()
			wg.Wait()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Info.Panic(err)
	}
}
