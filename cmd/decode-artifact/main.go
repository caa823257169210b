package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"eigenda-sidecar/internal/artifact"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	flag "github.com/spf13/pflag"
)

// decode-artifact prints the components of a stored proof artifact, read
// from the first argument or stdin.
func main() {
	f := flag.NewFlagSet("decode-artifact", flag.ExitOnError)
	payloadPath := f.String("payload", "", "optional payload file to check against the artifact's payload hash")
	_ = f.Parse(os.Args[1:])

	input := f.Arg(0)
	if input == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "read artifact: %v\n", err)
			os.Exit(1)
		}
		input = line
	}

	a, err := artifact.Decode(strings.TrimSpace(input))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seal:           %s (%d bytes)\n", hexutil.Encode(a.Seal), len(a.Seal))
	fmt.Printf("image_id:       %s\n", common.Hash(a.ImageID).Hex())
	fmt.Printf("journal_digest: %s\n", common.Hash(a.JournalDigest).Hex())
	fmt.Printf("payload_hash:   %s\n", common.Hash(a.PayloadHash).Hex())

	if *payloadPath != "" {
		payload, err := os.ReadFile(*payloadPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
			os.Exit(1)
		}
		if artifact.PayloadHash(payload) != a.PayloadHash {
			fmt.Println("❌ payload hash does not match")
			os.Exit(2)
		}
		fmt.Println("✅ payload hash matches")
	}
}
