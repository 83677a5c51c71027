// Command strokebench replays recorded canvas sessions and serves a live
// debug canvas for internal/canvas.
package main

import "github.com/MeKo-Tech/stroke/internal/strokecmd"

func main() {
	strokecmd.Execute()
}
