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

/*
Package vcf reads, filters, and writes VCF files as streams of
variants.

Only the fixed columns of a variant line are parsed. INFO is kept as a
list of entries, and the FORMAT and sample columns are passed through
unchanged. This is sufficient for record-level filters and
annotations, which can then run in parallel on a stream.Engine without
paying for a full genotype parse.
*/
package vcf
