// Copyright 2025 ampscore Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package selector

import (
	"fmt"
	"sort"

	"modernc.org/sortutil"
)

// NoConsensusError reports that no feature was selected by enough selectors.
type NoConsensusError struct {
	NumSelectors int
	MinVotes     int
}

func (e *NoConsensusError) Error() string {
	return fmt.Sprintf("no feature selected by at least %d of %d selectors", e.MinVotes, e.NumSelectors)
}

// Vote returns the feature indices selected by at least minVotes of the given
// selections, in ascending order. When fewer selections than minVotes are
// available the threshold drops to the number of selections, so a single
// surviving selection passes through unchanged.
func Vote(selections [][]int32, minVotes int) ([]int32, error) {
	if minVotes > len(selections) {
		minVotes = len(selections)
	}
	if minVotes < 1 {
		minVotes = 1
	}
	votes := make(map[int32]int)
	for _, selection := range selections {
		for _, index := range selection {
			votes[index]++
		}
	}
	consensus := make([]int32, 0, len(votes))
	for index, count := range votes {
		if count >= minVotes {
			consensus = append(consensus, index)
		}
	}
	if len(consensus) == 0 {
		return nil, &NoConsensusError{NumSelectors: len(selections), MinVotes: minVotes}
	}
	sort.Sort(sortutil.Int32Slice(consensus))
	return consensus, nil
}
