package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the startup banner with the given version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Amber-to-orange gradient, one shade per row
	s1 := termenv.String("  ___         _           _     ").Foreground(p.Color("#fbbf24"))
	s2 := termenv.String(" | __|_ _ __| |_ ___ _ _(_)___  ").Foreground(p.Color("#f59e0b"))
	s3 := termenv.String(" | _/ _` / _|  _/ _ \\ '_| / _ \\ ").Foreground(p.Color("#ea580c"))
	s4 := termenv.String(" |_|\\__,_\\__|\\__\\___/_| |_\\___/ ").Foreground(p.Color("#c2410c"))
	tag := termenv.String(fmt.Sprintf("   factorio-llm v%s", strings.TrimSpace(version))).Faint()

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(tag)
	fmt.Println()
}
