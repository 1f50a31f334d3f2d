// elstream: a parallel streaming toolkit for VCF and SAM files.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elstream/blob/master/LICENSE.txt>.

package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type totals struct {
	count, sum, max int
}

func (t *totals) Add(value int) {
	t.count++
	t.sum += value
	if value > t.max {
		t.max = value
	}
}

func aggregate(values []int) (totals, uint64) {
	var acc totals
	agg := newAggregator[int](&acc, DefaultAnalysisCapacity)
	go agg.run(context.Background())
	for _, v := range values {
		agg.values <- v
	}
	close(agg.values)
	<-agg.done
	return acc, agg.count
}

func TestAggregatorFoldsAllValues(t *testing.T) {
	acc, count := aggregate(makeRecords(1000))
	require.Equal(t, uint64(1000), count)
	require.Equal(t, totals{count: 1000, sum: 500500, max: 1000}, acc)
}

func TestAggregatorWithoutAccumulator(t *testing.T) {
	agg := newAggregator[int](nil, 1)
	go agg.run(context.Background())
	agg.values <- 1
	agg.values <- 2
	close(agg.values)
	<-agg.done
	require.Equal(t, uint64(2), agg.count)
}

func TestAggregatorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	agg := newAggregator[int](&totals{}, 1)
	go agg.run(ctx)
	cancel()
	<-agg.done
}

func TestAggregatorIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOf(rapid.IntRange(-1000, 1000)).Draw(t, "values")
		permuted := rapid.Permutation(values).Draw(t, "permuted")
		expected, _ := aggregate(values)
		actual, _ := aggregate(permuted)
		if expected != actual {
			t.Fatalf("%+v != %+v", expected, actual)
		}
	})
}
