package banner

import (
	"fmt"

	"squashd/pkg/config"
)

const banner = `
███████╗ ██████╗ ██╗   ██╗ █████╗ ███████╗██╗  ██╗██████╗
██╔════╝██╔═══██╗██║   ██║██╔══██╗██╔════╝██║  ██║██╔══██╗
███████╗██║   ██║██║   ██║███████║███████╗███████║██║  ██║
╚════██║██║▄▄ ██║██║   ██║██╔══██║╚════██║██╔══██║██║  ██║
███████║╚██████╔╝╚██████╔╝██║  ██║███████║██║  ██║██████╔╝
╚══════╝ ╚══▀▀═╝  ╚═════╝ ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝
`

// Print renders the startup banner with the effective configuration.
func Print(cfg *config.Config, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Admin:    %s\n", cfg.Addr())
	fmt.Printf("DB Path:  %s\n", cfg.Storage.DBPath)
	fmt.Printf("Bridge:   %s (prefix %q)\n", cfg.Transport.URL, cfg.Transport.SubjectPrefix)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Mode =======================================================")
	fmt.Printf("Autosquash: %v\n", cfg.Squash.Autosquash)
	fmt.Printf("Dry run:    %v\n", cfg.Squash.DryRun)
	fmt.Printf("Max length: %d\n", cfg.Squash.MaxMessageLen)
	if cfg.Retention.Enabled {
		fmt.Printf("Retention:  enabled (cron=%s period=%s)\n", cfg.Retention.Cron, cfg.Retention.Period)
	} else {
		fmt.Println("Retention:  disabled")
	}
	fmt.Println("\n== Commands ===================================================")
	fmt.Println("  !squash [n]        -> merge recent outgoing messages")
	fmt.Println("  !autosquash on/off -> toggle real-time merging")
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Printf("GET http://localhost%s/healthz\n", cfg.Addr())
	fmt.Printf("GET http://localhost%s/v1/archive?chat=<id>&limit=<n>\n", cfg.Addr())
	fmt.Printf("GET http://localhost%s/metrics\n", cfg.Addr())
	fmt.Println()
}
