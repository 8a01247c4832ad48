/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package splitkv implements a time-partitioned, primary-key-indexed table.
//
// A single logical, ordered table is stored across multiple on-disk
// partition files. Each partition captures rows written during a bounded
// time window or up to a bounded size; once a partition exceeds its age or
// size threshold, a new partition becomes the active write target and the
// older partitions remain read-only except for in-place update/delete of
// the keys already in them.
//
// The package itself only implements the partition lifecycle, the
// cross-partition dispatch of get/put/replace/delete/iterate calls, and the
// concurrency discipline around them. The per-partition storage engine is
// an external collaborator described by the PartitionStore interface; see
// package partstore for a concrete, bbolt-backed implementation.
package splitkv
