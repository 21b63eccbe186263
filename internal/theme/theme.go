package theme

import (
	"git.lost.host/meutraa/keys/internal/game"
)

// Theme styles the cells of the roll and keyboard. Every method returns a
// string that is exactly width cells wide.
type Theme interface {
	RenderNote(pitch uint8, crossed bool, width int) string
	RenderSustain(pitch uint8, width int) string
	RenderHitField(pitch uint8, width int) string
	RenderKey(pitch uint8, active bool, width int) string
	RenderEffect(judgement game.Judgement, remaining float64, width int) string

	RenderTitle(s string) string
	RenderStatus(s string) string
	RenderSelected(s string) string
	RenderJudgement(judgement game.Judgement, s string) string
}
