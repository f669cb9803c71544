package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const miscGroup = "Miscellaneous"

// Choice picks a uniformly random element of list using a cryptographic
// source. It returns "" for an empty list.
func Choice(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[randBelow(len(list))]
}

func randBelow(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return int(v.Int64())
}

// RollDice rolls cnt dice with siz faces each.
func RollDice(siz, cnt int) []int {
	out := make([]int, cnt)
	for i := range out {
		out[i] = randBelow(siz) + 1
	}
	return out
}

// NewRollCommand returns the dice command.
func NewRollCommand() Command {
	return Func{
		Desc: Descriptor{
			Name:        "roll",
			Group:       miscGroup,
			Description: "Roll dice.",
			Options: []Option{
				{Name: "siz", Description: "Number of faces", Kind: KindInteger, Required: true, HasRange: true, Min: 2, Max: 1000},
				{Name: "cnt", Description: "Number of dice", Kind: KindInteger, HasRange: true, Min: 1, Max: 400, Default: int64(1)},
			},
			Ephemeral: true,
		},
		Run: func(_ context.Context, req *Request) ([]Reply, error) {
			siz, cnt := int(req.Args.Int("siz")), int(req.Args.Int("cnt"))
			rolls := RollDice(siz, cnt)
			total := 0
			parts := make([]string, len(rolls))
			for i, r := range rolls {
				total += r
				parts[i] = strconv.Itoa(r)
			}
			content := fmt.Sprintf("You rolled %dd%d and get a %d!\n```\n%s\n```", cnt, siz, total, strings.Join(parts, ", "))
			return []Reply{{Content: content, Ephemeral: true}}, nil
		},
	}
}

// NewEightBallCommand returns the magic 8-ball command answering from answers.
func NewEightBallCommand(answers []string) Command {
	return Func{
		Desc: Descriptor{
			Name:        "8ball",
			Aliases:     []string{"eightball"},
			Group:       miscGroup,
			Description: "Ask the magic 8-ball.",
			Options: []Option{
				{Name: "qry", Description: "Question to ask", Kind: KindString, Default: "Is it?", Rest: true},
			},
			Ephemeral: true,
		},
		Run: func(_ context.Context, req *Request) ([]Reply, error) {
			content := fmt.Sprintf("> %s\n%s", req.Args.String("qry"), Choice(answers))
			return []Reply{{Content: content, Ephemeral: true}}, nil
		},
	}
}

// NewPingCommand returns the latency command.
func NewPingCommand() Command {
	return Func{
		Desc: Descriptor{
			Name:        "ping",
			Group:       miscGroup,
			Description: "Test the latency.",
		},
		Run: func(_ context.Context, req *Request) ([]Reply, error) {
			ms := int64(math.Ceil(float64(req.Latency.Microseconds()) / 1000))
			return Text(fmt.Sprintf("Pong! The ping took %d ms.", ms)), nil
		},
	}
}
