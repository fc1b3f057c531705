package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/poseplay/internal/app"
	"github.com/ayusman/poseplay/internal/capture"
	"github.com/ayusman/poseplay/internal/config"
	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/events"
	"github.com/ayusman/poseplay/internal/server"
	"github.com/ayusman/poseplay/internal/tray"
)

// serve flags
var (
	addrFlag    string
	cameraFlag  string
	natsFlag    string
	pluginsFlag string
	webFlag     string
	noTrayFlag  bool
	previewFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kiosk: camera, session loop and HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", ":8080", "HTTP listen address")
	serveCmd.Flags().StringVar(&cameraFlag, "camera", "0", `Camera index, video file or stream URL; "none" to take poses from the browser`)
	serveCmd.Flags().StringVar(&natsFlag, "nats", "", "NATS server URL for session events (default $POSEPLAY_NATS_URL)")
	serveCmd.Flags().StringVar(&pluginsFlag, "plugins", "", "Plugin directory (default ./plugins or ~/.poseplay/plugins)")
	serveCmd.Flags().StringVar(&webFlag, "web", "", "Static kiosk UI directory (default ./web or ~/.poseplay/web)")
	serveCmd.Flags().BoolVar(&noTrayFlag, "no-tray", false, "Run without the system tray")
	serveCmd.Flags().BoolVar(&previewFlag, "preview", false, "Serve the camera preview at /api/stream")
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	settings, err := resolveSettings(st)
	if err != nil {
		return err
	}
	log.Info().
		Str("mode", settings.Mode).
		Str("speed", string(settings.Speed)).
		Int("timeout", settings.Timeout).
		Bool("sharing", settings.Sharing).
		Msg("settings resolved")

	publisher := newPublisher()
	defer publisher.Close()

	cam, det := newCapture(settings)

	pluginDir := pluginsFlag
	if pluginDir == "" {
		pluginDir = findDir("plugins")
	}

	a := app.New(app.Config{
		Settings:  settings,
		Camera:    cam,
		Detector:  det,
		Store:     st,
		Publisher: publisher,
		PluginDir: pluginDir,
		Preview:   previewFlag && cam != nil,
	})
	if err := a.DiscoverPlugins(); err != nil {
		log.Warn().Err(err).Str("dir", pluginDir).Msg("plugin discovery failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer a.Stop()

	webDir := webFlag
	if webDir == "" {
		webDir = findDir("web")
	}
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("serving kiosk UI")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       a,
		Store:     st,
		Stream:    previewFlag && cam != nil,
	}).HTTPServer(addrFlag)

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addrFlag).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	if noTrayFlag {
		select {
		case <-ctx.Done():
		case err := <-errc:
			if err != nil {
				stop()
				shutdown(srv)
				return fmt.Errorf("server failed: %w", err)
			}
		}
	} else {
		runTray(ctx, stop, a)
	}

	log.Info().Msg("shutting down")
	shutdown(srv)
	return nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
}

func newPublisher() events.Publisher {
	url := natsFlag
	if url == "" {
		url = os.Getenv("POSEPLAY_NATS_URL")
	}
	if url == "" {
		return events.Nop{}
	}

	cfg := events.DefaultConfig()
	cfg.URL = url
	pub, err := events.NewNATSPublisher(cfg)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("session events disabled")
		return events.Nop{}
	}
	log.Info().Str("url", url).Msg("publishing session events")
	return pub
}

// newCapture builds the camera and pose service. Without a pose service the
// kiosk still runs and takes poses from the browser.
func newCapture(s config.Settings) (capture.Camera, detector.Detector) {
	if strings.EqualFold(cameraFlag, "none") {
		log.Info().Msg("camera disabled, expecting poses over HTTP")
		return nil, nil
	}

	dcfg := detector.DefaultConfig()
	dcfg.OutputStride = s.OutputStride
	dcfg.InputResolution = s.InputResolution
	dcfg.Multiplier = s.Multiplier

	det, err := detector.NewServiceDetector(dcfg)
	if err != nil {
		log.Warn().Err(err).Msg("pose service unavailable, expecting poses over HTTP")
		return nil, nil
	}

	ccfg := capture.DefaultConfig()
	ccfg.Device = cameraFlag
	return capture.New(ccfg), det
}

// runTray blocks on the tray until it quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnReset(func() {
		if _, err := a.Reset(ctx); err != nil {
			log.Warn().Err(err).Msg("reset failed")
		}
	})
	t.OnOpen(func() { openBrowser(kioskURL(addrFlag)) })
	t.OnQuit(stop)

	updates, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				t.SetPhase(snap.Phase)
			}
		}
	}()

	t.Run()
}

func kioskURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
	}
}
