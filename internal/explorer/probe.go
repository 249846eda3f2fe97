package explorer

import (
	"context"
	"errors"
)

// ProbeChain issues a cheap stats call against one chain's explorer to verify
// the endpoint is reachable and the API key is accepted. Used by the check
// command and operational probes, never by the tick loop.
func (c *Client) ProbeChain(ctx context.Context, chainName string) error {
	def := QueryDefinition{
		ID:        "probe_" + chainName,
		ChainName: chainName,
		Params: map[string]string{
			"module":   "stats",
			"action":   "ethprice",
			"decimals": "0",
		},
	}

	endpoint, ok := c.opts.Chains[chainName]
	if !ok {
		return permanentErr(def.ID, "chain not configured", nil)
	}

	_, err := c.fetchHTTP(ctx, def, endpoint)

	// The ethprice result is an object on most explorers; a parse failure on
	// the result body still proves the endpoint answered with status=1 data.
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindPermanent && fe.Msg == "non-numeric result payload" {
		return nil
	}
	return err
}
