package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Scrimzay/battleships/internal/battle"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// cap on shots per game; both sides together need at most 200
const maxSteps = 400

type gameResult struct {
	seed        int64
	winner      battle.Side
	shots       int // attacker shots, Row Nukes excluded
	enemyShots  int
	score       int
	accuracy    int
	nukesEarned int
}

type summary struct {
	attacker, defender battle.Difficulty

	games         int
	attackerWins  int
	avgShotsToWin float64
	avgScore      float64
	avgAccuracy   float64
	bestScore     int
	nukesEarned   int
}

func main() {
	var games int
	var seedBase int64
	var seedStep int64
	var attackerFlag string
	var defenderFlag string
	var matrix bool

	flag.IntVar(&games, "games", 20, "games per matchup")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for game 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between games")
	flag.StringVar(&attackerFlag, "attacker", "HARD", "difficulty of the AI playing the scored side")
	flag.StringVar(&defenderFlag, "defender", "NORMAL", "difficulty of the opposing AI")
	flag.BoolVar(&matrix, "all", false, "run every attacker/defender pairing")
	flag.Parse()

	if games <= 0 {
		fmt.Println("error: -games must be > 0")
		return
	}

	var pairs [][2]battle.Difficulty
	if matrix {
		for _, a := range difficulties {
			for _, d := range difficulties {
				pairs = append(pairs, [2]battle.Difficulty{a, d})
			}
		}
	} else {
		attacker, err := parseDifficultyFlag(attackerFlag)
		if err != nil {
			fmt.Println("error: -attacker:", err)
			return
		}
		defender, err := parseDifficultyFlag(defenderFlag)
		if err != nil {
			fmt.Println("error: -defender:", err)
			return
		}
		pairs = append(pairs, [2]battle.Difficulty{attacker, defender})
	}

	p := message.NewPrinter(language.English)
	fmt.Printf("=== Battleships AI Report ===\n")
	fmt.Printf("games=%d seed_base=%d seed_step=%d\n\n", games, seedBase, seedStep)

	for _, pair := range pairs {
		results := make([]gameResult, 0, games)
		for i := 0; i < games; i++ {
			seed := seedBase + int64(i)*seedStep
			res, err := playGame(seed, pair[0], pair[1])
			if err != nil {
				fmt.Printf("error: game %d (seed %d): %v\n", i+1, seed, err)
				return
			}
			results = append(results, res)
		}
		fmt.Println(formatSummary(p, summarize(pair[0], pair[1], results)))
	}
}

var difficulties = []battle.Difficulty{battle.Easy, battle.Normal, battle.Hard}

// parseDifficultyFlag is strict, unlike battle.ParseDifficulty.
func parseDifficultyFlag(s string) (battle.Difficulty, error) {
	d := battle.Difficulty(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range difficulties {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q (supported: EASY, NORMAL, HARD)", s)
}

// playGame runs one AI-versus-AI match. The attacker plays the scored player
// side; the defender is the match's own enemy AI.
func playGame(seed int64, attacker, defender battle.Difficulty) (gameResult, error) {
	rng := rand.New(rand.NewSource(seed))
	m := battle.NewMatch(defender, rng)
	if err := m.AutoPlace(); err != nil {
		return gameResult{}, err
	}
	if err := m.Start(); err != nil {
		return gameResult{}, err
	}

	brain := battle.NewAI(attacker, rng)
	res := gameResult{seed: seed}
	for step := 0; m.Phase() == battle.PhaseBattle; step++ {
		if step >= maxSteps {
			return gameResult{}, errors.New("game did not finish")
		}

		if m.CurrentTurn() == battle.Enemy {
			if _, err := m.EnemyShot(); err != nil {
				return gameResult{}, fmt.Errorf("enemy shot: %w", err)
			}
			res.enemyShots++
			continue
		}

		target, ok := brain.SelectTarget()
		if !ok {
			return gameResult{}, errors.New("attacker ran out of targets")
		}
		rep, err := m.Fire(target)
		if err != nil {
			return gameResult{}, fmt.Errorf("fire %s: %w", target, err)
		}
		res.shots++
		if rep.Outcome.RowNukeEarned {
			res.nukesEarned++
		}

		brain.RegisterAttack(target)
		switch {
		case !rep.Hit:
			brain.RegisterMiss(target)
		case rep.Sunk:
			brain.RegisterHit(target)
			brain.RegisterSink(rep.SunkCells)
		default:
			brain.RegisterHit(target)
		}
	}

	sum := m.Summary()
	res.winner = sum.Winner
	res.score = sum.Total
	res.accuracy = sum.Accuracy
	return res, nil
}

func summarize(attacker, defender battle.Difficulty, results []gameResult) summary {
	s := summary{attacker: attacker, defender: defender, games: len(results)}
	if len(results) == 0 {
		return s
	}

	winShots := 0
	totalScore := 0
	totalAccuracy := 0
	for _, r := range results {
		totalScore += r.score
		totalAccuracy += r.accuracy
		s.nukesEarned += r.nukesEarned
		if r.score > s.bestScore {
			s.bestScore = r.score
		}
		if r.winner == battle.Player {
			s.attackerWins++
			winShots += r.shots
		}
	}

	if s.attackerWins > 0 {
		s.avgShotsToWin = float64(winShots) / float64(s.attackerWins)
	}
	s.avgScore = float64(totalScore) / float64(len(results))
	s.avgAccuracy = float64(totalAccuracy) / float64(len(results))
	return s
}

func (s summary) winRate() float64 {
	if s.games == 0 {
		return 0
	}
	return float64(s.attackerWins) / float64(s.games) * 100
}

func formatSummary(p *message.Printer, s summary) string {
	var b strings.Builder
	b.WriteString(p.Sprintf("--- %s attacker vs %s defender ---\n", s.attacker, s.defender))
	b.WriteString(p.Sprintf("  wins:           %d/%d (%.1f%%)\n", s.attackerWins, s.games, s.winRate()))
	if s.attackerWins > 0 {
		b.WriteString(p.Sprintf("  shots to win:   %.1f\n", s.avgShotsToWin))
	} else {
		b.WriteString("  shots to win:   n/a\n")
	}
	b.WriteString(p.Sprintf("  average score:  %.0f\n", s.avgScore))
	b.WriteString(p.Sprintf("  best score:     %d\n", s.bestScore))
	b.WriteString(p.Sprintf("  accuracy:       %.1f%%\n", s.avgAccuracy))
	b.WriteString(p.Sprintf("  nukes earned:   %d\n", s.nukesEarned))
	return b.String()
}
