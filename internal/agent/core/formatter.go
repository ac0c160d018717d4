package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/gramlens/internal/helpers"
	"github.com/mohammad-safakhou/gramlens/internal/query"
)

const (
	blockSeparator   = "\n---\n\n"
	postTextBudget   = 200
	termTextBudget   = 250
	maxPostsPerBlock = 10
	maxTermExamples  = 5
)

// FormatOutcomes renders one textual block per executed action, in plan
// order, for the synthesizer's context window. Dispatch is on the variant of
// the first item; tools produce homogeneous sequences so mixed blocks are
// not a supported state.
func FormatOutcomes(outcomes []ExecutionOutcome) string {
	var b strings.Builder
	for _, outcome := range outcomes {
		if len(outcome.Items) == 0 {
			continue
		}
		switch outcome.Items[0].(type) {
		case PostRecord:
			formatPosts(&b, outcome)
		case StatisticsItem:
			formatStatistics(&b, outcome.Items[0].(StatisticsItem).Stats)
		case ComparisonItem:
			formatComparison(&b, outcome.Items[0].(ComparisonItem))
		case TermCountItem:
			formatTermCount(&b, outcome.Items[0].(TermCountItem).Count)
		case SentimentReport:
			formatSentiment(&b, outcome.Items[0].(SentimentReport))
		}
		b.WriteString(blockSeparator)
	}
	return b.String()
}

func formatPosts(b *strings.Builder, outcome ExecutionOutcome) {
	fmt.Fprintf(b, "Results from %s:\n", outcome.Tool)
	for i, item := range outcome.Items {
		if i >= maxPostsPerBlock {
			fmt.Fprintf(b, "(%d more posts omitted)\n", len(outcome.Items)-maxPostsPerBlock)
			break
		}
		record, ok := item.(PostRecord)
		if !ok {
			continue
		}
		p := record.Post
		fmt.Fprintf(b, "%d. [%s] likes: %d, comments: %d", i+1, p.Profile, p.LikesCount, p.CommentsCount)
		if !p.Timestamp.IsZero() {
			fmt.Fprintf(b, ", posted: %s", p.Timestamp.Format("2006-01-02"))
		}
		if record.Distance > 0 {
			fmt.Fprintf(b, ", distance: %.4f", record.Distance)
		}
		b.WriteByte('\n')
		fmt.Fprintf(b, "   %s\n", helpers.Truncate(p.Text, postTextBudget))
		if p.URL != "" {
			fmt.Fprintf(b, "   URL: %s\n", p.URL)
		}
	}
}

func formatStatistics(b *strings.Builder, stats query.Statistics) {
	scope := stats.Profile
	if scope == "" {
		scope = "all profiles"
	}
	fmt.Fprintf(b, "Statistics for %s:\n", scope)
	fmt.Fprintf(b, "- Total posts: %d\n", stats.TotalPosts)
	fmt.Fprintf(b, "- Total likes: %d\n", stats.TotalLikes)
	fmt.Fprintf(b, "- Total comments: %d\n", stats.TotalComments)
	fmt.Fprintf(b, "- Average likes per post: %.2f\n", stats.AvgLikes)
	fmt.Fprintf(b, "- Average comments per post: %.2f\n", stats.AvgComments)
	fmt.Fprintf(b, "- Total engagement: %d\n", stats.TotalEngagement)
	if stats.TopPost != nil {
		fmt.Fprintf(b, "- Top post (%d likes, %d comments): %s\n",
			stats.TopPost.LikesCount, stats.TopPost.CommentsCount,
			helpers.Truncate(stats.TopPost.Text, postTextBudget))
	}
}

func formatComparison(b *strings.Builder, item ComparisonItem) {
	b.WriteString("Profile comparison:\n")
	profiles := make([]string, 0, len(item.Profiles))
	for profile := range item.Profiles {
		profiles = append(profiles, profile)
	}
	sort.Strings(profiles)
	for _, profile := range profiles {
		stats := item.Profiles[profile]
		fmt.Fprintf(b, "\n%s:\n", profile)
		fmt.Fprintf(b, "- Total posts: %d\n", stats.TotalPosts)
		fmt.Fprintf(b, "- Average likes per post: %.2f\n", stats.AvgLikes)
		fmt.Fprintf(b, "- Average comments per post: %.2f\n", stats.AvgComments)
		fmt.Fprintf(b, "- Total engagement: %d\n", stats.TotalEngagement)
	}
}

func formatTermCount(b *strings.Builder, count query.TermCount) {
	scope := count.Profile
	if scope == "" {
		scope = "all profiles"
	}
	fmt.Fprintf(b, "Occurrences of %q (%s):\n", count.Term, scope)
	fmt.Fprintf(b, "- Matching posts: %d of %d (%.2f%%)\n", count.Count, count.TotalPosts, count.Percentage)
	if len(count.MatchingPosts) > 0 {
		b.WriteString("Examples:\n")
		for i, p := range count.MatchingPosts {
			if i >= maxTermExamples {
				break
			}
			fmt.Fprintf(b, "%d. %s\n", i+1, helpers.Truncate(p.Text, termTextBudget))
		}
	}
}

func formatSentiment(b *strings.Builder, report SentimentReport) {
	scope := report.Profile
	if scope == "" {
		scope = "all profiles"
	}
	fmt.Fprintf(b, "Sentiment on %q (%s):\n", report.Topic, scope)
	fmt.Fprintf(b, "- Posts analyzed: %d\n", report.PostsAnalyzed)
	fmt.Fprintf(b, "- Positive: %d, Negative: %d, Neutral: %d\n", report.Positive, report.Negative, report.Neutral)
	if report.Summary != "" {
		fmt.Fprintf(b, "- Summary: %s\n", report.Summary)
	}
	if len(report.KeyPoints) > 0 {
		b.WriteString("Key points:\n")
		for _, point := range report.KeyPoints {
			fmt.Fprintf(b, "- %s\n", point)
		}
	}
	if len(report.PositiveAspects) > 0 {
		fmt.Fprintf(b, "Positive aspects: %s\n", strings.Join(report.PositiveAspects, "; "))
	}
	if len(report.NegativeAspects) > 0 {
		fmt.Fprintf(b, "Negative aspects: %s\n", strings.Join(report.NegativeAspects, "; "))
	}
	for _, bucket := range []string{"positive", "negative", "neutral"} {
		posts := report.Examples[bucket]
		for i, p := range posts {
			if i >= 2 {
				break
			}
			fmt.Fprintf(b, "Example (%s): %s\n", bucket, helpers.Truncate(p.Text, postTextBudget))
		}
	}
	if report.Error != "" {
		fmt.Fprintf(b, "Note: %s\n", report.Error)
	}
}
