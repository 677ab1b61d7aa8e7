package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	playerID string
	name     string
	mode     string
	matchID  string
	team     string
	code     string
	target   string
	status   string
	limit    int
)

func init() {
	joinCmd.Flags().StringVar(&playerID, "player", "", "Player id")
	joinCmd.Flags().StringVar(&name, "name", "", "Display name, defaults to the player id")
	joinCmd.Flags().StringVar(&mode, "mode", "", "Game mode (1v1 or 5v5), defaults to the player's selection")
	joinCmd.MarkFlagRequired("player")

	leaveCmd.Flags().StringVar(&playerID, "player", "", "Player id")
	leaveCmd.MarkFlagRequired("player")

	statusCmd.Flags().StringVar(&mode, "mode", "", "Game mode (1v1 or 5v5), empty for both")

	modeCmd.Flags().StringVar(&playerID, "player", "", "Player id")
	modeCmd.Flags().StringVar(&mode, "mode", "", "Game mode (1v1 or 5v5)")
	modeCmd.MarkFlagRequired("player")
	modeCmd.MarkFlagRequired("mode")

	for _, cmd := range []*cobra.Command{acceptCmd, declineCmd, voteCmd, partyCodeCmd, selectWinnerCmd} {
		cmd.Flags().StringVar(&matchID, "match", "", "Match id")
		cmd.Flags().StringVar(&playerID, "player", "", "Player id")
		cmd.MarkFlagRequired("match")
		cmd.MarkFlagRequired("player")
	}
	voteCmd.Flags().StringVar(&team, "team", "", "Winning team (A or B)")
	voteCmd.MarkFlagRequired("team")
	partyCodeCmd.Flags().StringVar(&code, "code", "", "Lobby party code")
	partyCodeCmd.MarkFlagRequired("code")
	selectWinnerCmd.Flags().StringVar(&target, "target", "", "Winner: player id for duels, team letter for team battles")
	selectWinnerCmd.MarkFlagRequired("target")

	leaderboardCmd.Flags().StringVar(&mode, "mode", "5v5", "Game mode (1v1 or 5v5)")
	leaderboardCmd.Flags().IntVar(&limit, "limit", 10, "Number of players to list")

	statsCmd.Flags().StringVar(&playerID, "player", "", "Player id")
	statsCmd.MarkFlagRequired("player")

	matchesCmd.Flags().StringVar(&status, "status", "ACTIVE", "Match status to list")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(leaveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(declineCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(partyCodeCmd)
	rootCmd.AddCommand(selectWinnerCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health", nil)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the matchmaking queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/queue/join", url.Values{"playerID": {playerID}, "name": {name}, "mode": {mode}})
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave the matchmaking queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/queue/leave", url.Values{"playerID": {playerID}})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue lengths and search age",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/queue/status", url.Values{"mode": {mode}})
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Set a player's preferred game mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/mode", url.Values{"playerID": {playerID}, "mode": {mode}})
	},
}

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept a proposed match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/accept", url.Values{"matchID": {matchID}, "playerID": {playerID}})
	},
}

var declineCmd = &cobra.Command{
	Use:   "decline",
	Short: "Decline a proposed match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/decline", url.Values{"matchID": {matchID}, "playerID": {playerID}})
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote for the winning team of an active match",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/vote", url.Values{"matchID": {matchID}, "playerID": {playerID}, "team": {team}})
	},
}

var partyCodeCmd = &cobra.Command{
	Use:   "party-code",
	Short: "Submit the lobby party code (host only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/party-code", url.Values{"matchID": {matchID}, "playerID": {playerID}, "code": {code}})
	},
}

var selectWinnerCmd = &cobra.Command{
	Use:   "select-winner",
	Short: "Report the match winner (host only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest("/match/select-winner", url.Values{"matchID": {matchID}, "playerID": {playerID}, "target": {target}})
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top players by MMR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/leaderboard", url.Values{"mode": {mode}, "limit": {fmt.Sprint(limit)}})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a player's ratings and record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/players/stats", url.Values{"playerID": {playerID}})
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List matches by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/matches", url.Values{"status": {status}})
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics", nil)
	},
}

func performGetRequest(endpoint string, params url.Values) error {
	return performRequest(http.MethodGet, endpoint, params)
}

func performPostRequest(endpoint string, params url.Values) error {
	return performRequest(http.MethodPost, endpoint, params)
}

func performRequest(method, endpoint string, params url.Values) error {
	reqURL := host + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	fmt.Printf("Making request to %s\n", reqURL)

	req, err := http.NewRequest(method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
