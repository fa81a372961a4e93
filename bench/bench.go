package main

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dterei/gotsc"
	"github.com/p7r0x7/ratify/chacha"
	"github.com/p7r0x7/ratify/digest"
)

// Copyright © 2023 Matthew R Bonnette. Licensed under the Apache-2.0 license.
/* This program compares the throughput of the bundled primitives so that a slow suite
run can be blamed on the right hash. Cycle counts come from the TSC on amd64 and are
omitted elsewhere. */

var (
	size   int64
	rBytes []byte
	sizes  = []int64{
		64,
		512 * 1000,
		64 * 1000 * 1000,
	}
)

func makeBytes(size int64) {
	rBytes = make([]byte, size)
	if _, err := rand.Read(rBytes); err != nil {
		panic("failed to generate random data")
	}
}

func oneShot(sum func([]byte) ([]byte, error)) func(b *testing.B) {
	return func(b *testing.B) {
		makeBytes(size)
		b.SetBytes(size)
		b.ResetTimer()
		for i := b.N; i > 0; i-- {
			sum(rBytes)
		}
	}
}

func keystream(b *testing.B) {
	makeBytes(size)
	key := make([]byte, chacha.KeySize)
	nonce := make([]byte, chacha.NonceSize)
	out := make([]byte, size)
	b.SetBytes(size)
	b.ResetTimer()
	for i := b.N; i > 0; i-- {
		if err := chacha.Encrypt(key, nonce, 0, rBytes, out); err != nil {
			panic(err)
		}
	}
}

func algBench(name string, fn func(b *testing.B)) {
	fmt.Printf("%-11s  64B    512K     64M\n", name)
	throughputs, speeds, usages := make([]float64, 3), make([]float64, 3), make([]float64, 3)
	for i := range sizes {
		size = sizes[i]
		var totalHz, polls, sampling uint64
		if runtime.GOARCH == "amd64" {
			sampling = 1
			go func() {
				calltime := gotsc.TSCOverhead()
				for atomic.LoadUint64(&sampling) == 1 {
					tsc1 := gotsc.BenchStart()
					time.Sleep(time.Millisecond)
					tsc2 := gotsc.BenchEnd()
					atomic.AddUint64(&totalHz, (tsc2-tsc1-calltime)*1000)
					atomic.AddUint64(&polls, 1)
					time.Sleep(time.Millisecond * 19)
				}
			}()
		}
		r := testing.Benchmark(fn)
		atomic.StoreUint64(&sampling, 0)
		throughputs[i] = float64(r.Bytes*int64(r.N)) / r.T.Seconds() /* B/s */
		speeds[i] = float64(atomic.LoadUint64(&totalHz)) / float64(atomic.LoadUint64(&polls)) / throughputs[i]
		usages[i] = float64(r.AllocedBytesPerOp())
	}

	fmt.Printf("Speed     %7.5g %7.5g %7.5g  MB/s\n",
		throughputs[0]/1e6, throughputs[1]/1e6, throughputs[2]/1e6)
	if speeds[0]+speeds[1]+speeds[2] > 0 {
		fmt.Printf("          %7.5g %7.5g %7.5g  cpb\n", speeds[0], speeds[1], speeds[2])
	}
	fmt.Printf("Usage     %7.5g %7.5g %7.5g  B/op\n\n", usages[0], usages[1], usages[2])
}

func main() {
	fmt.Printf("Benchmarking ratify's primitives on %d CPUs!\n\n", runtime.NumCPU())

	t := time.Now()
	algBench("BLAKE2b", oneShot(digest.SumBLAKE2b))
	algBench("SHA-256", oneShot(digest.SumSHA256))
	algBench("SHA3-256", oneShot(digest.SumSHA3))
	algBench("BLAKE3", oneShot(digest.SumBLAKE3))
	algBench("XXH3", oneShot(digest.SumXXH3))
	algBench("ChaCha20", keystream)

	fmt.Printf("Finished in %s on %s/%s.\n", time.Since(t).String(), runtime.GOOS, runtime.GOARCH)
}
