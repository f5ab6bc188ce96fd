package tui

import (
	"fmt"
	"os"
)

// PrintSuccess prints a styled success message with the [cmd-gen] prefix.
func PrintSuccess(msg string) {
	if IsPlainMode() {
		fmt.Printf("[cmd-gen] OK: %s\n", msg)
		return
	}
	fmt.Printf("%s %s %s\n", Prefix(), StyleSuccess.Render(IconCheck), msg)
}

// PrintError prints a styled error message with the [cmd-gen] prefix.
func PrintError(msg string) {
	if IsPlainMode() {
		fmt.Fprintf(os.Stderr, "[cmd-gen] ERROR: %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n", Prefix(), StyleError.Render(IconCross), msg)
}

// PrintWarning prints a styled warning message with the [cmd-gen] prefix.
func PrintWarning(msg string) {
	if IsPlainMode() {
		fmt.Printf("[cmd-gen] WARNING: %s\n", msg)
		return
	}
	fmt.Printf("%s %s %s\n", Prefix(), StyleWarning.Render(IconWarning), msg)
}

// PrintInfo prints a styled info message with the [cmd-gen] prefix.
func PrintInfo(msg string) {
	if IsPlainMode() {
		fmt.Printf("[cmd-gen] %s\n", msg)
		return
	}
	fmt.Printf("%s %s %s\n", Prefix(), StyleInfo.Render(IconInfo), msg)
}

// PrintDenied prints a denial verdict for a command.
func PrintDenied(command, reason string) {
	if IsPlainMode() {
		fmt.Printf("[cmd-gen] DENIED: %s\n", command)
		fmt.Printf("[cmd-gen]   reason: %s\n", reason)
		return
	}
	fmt.Printf("%s %s %s %s\n", Prefix(), StyleError.Render(IconBlock), StyleError.Render("DENIED"), StyleCommand.Render(command))
	fmt.Printf("%s   %s\n", Prefix(), StyleMuted.Render(reason))
}

// PrintAllowed prints an approval verdict for a command.
func PrintAllowed(command string) {
	if IsPlainMode() {
		fmt.Printf("[cmd-gen] ALLOWED: %s\n", command)
		return
	}
	fmt.Printf("%s %s %s %s\n", Prefix(), StyleSuccess.Render(IconCheck), StyleSuccess.Render("ALLOWED"), StyleCommand.Render(command))
}
