package app

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// CheckChains probes every configured chain's explorer endpoint and prints a
// per-chain health line. Returns an error when any chain is unhealthy so the
// command exit code is usable from operational scripts.
func (a *App) CheckChains(ctx context.Context, out io.Writer) error {
	client := a.newExplorerClient()

	names := make([]string, 0, len(a.Config.Chains))
	for name := range a.Config.Chains {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := 0
	for _, name := range names {
		if err := client.ProbeChain(ctx, name); err != nil {
			fmt.Fprintf(out, "%-12s error: %v\n", name, err)
			continue
		}
		healthy++
		fmt.Fprintf(out, "%-12s healthy\n", name)
	}

	fmt.Fprintf(out, "\n%d/%d chains healthy\n", healthy, len(names))
	if healthy < len(names) {
		return fmt.Errorf("%d chain(s) unhealthy", len(names)-healthy)
	}
	return nil
}
