package track

import (
	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/model"
	"github.com/nicx17/hytrack/internal/store"
)

// Merge folds freshly discovered waybills into ids in place and returns how
// many were new. Waybills already present are left completely untouched, so
// rediscovering a delivered waybill does not resurrect it. Merging the same
// set twice is a no-op the second time.
func Merge(ids map[string]*store.Entry, discovered []string, log zerolog.Logger) int {
	added := 0
	for _, wb := range discovered {
		if !model.ValidWaybill(wb) {
			log.Warn().Str("waybill", wb).Msg("ignoring malformed waybill number")
			continue
		}
		if _, ok := ids[wb]; ok {
			continue
		}
		ids[wb] = &store.Entry{}
		added++
		log.Info().Str("waybill", wb).Msg("added new tracking id")
	}
	return added
}
