package workpool_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ardanlabs/raiwallet/foundation/blockchain/account"
	"github.com/ardanlabs/raiwallet/foundation/blockchain/workpool"
)

// Success and failed markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// lowThreshold keeps the brute force search in the tests to a few hundred
// attempts on average.
const lowThreshold uint64 = 0xff00000000000000

const (
	hash1 = "C008B814A7D269A1FA3C6528B19201A24D797912DB9996FF02A1FF356E45552B"
	hash2 = "A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1A1"
	hash3 = "B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2B2"
	acc1  = account.ID("xrb_3i1aq1cchnmbn9x5rsbap8b15akfh7wj7pwskuzi7ahz8oq6cobd99d4r3b7")
	acc2  = account.ID("xrb_1111111111111111111111111111111111111111111111111111hifc8npp")
)

// solve searches for a work value that meets the threshold for the hash.
func solve(t *testing.T, hash string, threshold uint64) string {
	t.Helper()

	for n := uint64(0); n < 1<<20; n++ {
		work := fmt.Sprintf("%016x", n)
		if workpool.Check(work, hash, threshold) == nil {
			return work
		}
	}

	t.Fatalf("unable to find work for hash %s", hash)
	return ""
}

// =============================================================================

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate proof of work.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a work value found by search.", testID)
		{
			work := solve(t, hash1, lowThreshold)

			for i := 0; i < 3; i++ {
				if err := workpool.Check(work, hash1, lowThreshold); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould accept the same work every time: %v", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould accept the same work every time.", success, testID)

			v, err := workpool.Value(work, hash1)
			if err != nil || v < lowThreshold {
				t.Fatalf("\t%s\tTest %d:\tShould get back a value over the threshold: %x %v", failed, testID, v, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get back a value over the threshold.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen handling work that does not meet the threshold.", testID)
		{
			err := workpool.Check("0000000000000000", hash1, workpool.DefaultThreshold)
			if !errors.Is(err, workpool.ErrInvalidProofOfWork) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the work: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the work.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen handling malformed values.", testID)
		{
			for _, work := range []string{"", "zz", "00000000000000", "000000000000000000"} {
				if err := workpool.Check(work, hash1, lowThreshold); !errors.Is(err, workpool.ErrInvalidProofOfWork) {
					t.Fatalf("\t%s\tTest %d:\tShould reject work %q: %v", failed, testID, work, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject malformed work.", success, testID)

			if err := workpool.Check("0000000000000000", "ABCD", lowThreshold); !errors.Is(err, workpool.ErrInvalidProofOfWork) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a short hash: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a short hash.", success, testID)
		}
	}
}

func Test_Pool(t *testing.T) {
	t.Log("Given the need to track work through its lifecycle.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen adding entries.", testID)
		{
			p := workpool.New(lowThreshold)

			if !p.Add(hash1, acc1, true) {
				t.Fatalf("\t%s\tTest %d:\tShould add the first entry.", failed, testID)
			}
			if p.Add(hash1, acc1, false) {
				t.Fatalf("\t%s\tTest %d:\tShould not add the same hash twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep one entry per hash.", success, testID)

			e, _ := p.Entry(hash1)
			if !e.Needed {
				t.Fatalf("\t%s\tTest %d:\tShould keep the original needed flag.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the original needed flag.", success, testID)

			p.AddWorked(hash2, acc2, false, "00000000000000FF")
			e, _ = p.Entry(hash2)
			if !e.Worked || !e.Requested || e.Work != "00000000000000ff" {
				t.Fatalf("\t%s\tTest %d:\tShould mark supplied work as worked and requested: %+v", failed, testID, e)
			}
			t.Logf("\t%s\tTest %d:\tShould mark supplied work as worked and requested.", success, testID)

			if p.Threshold() != lowThreshold || workpool.New(0).Threshold() != workpool.DefaultThreshold {
				t.Fatalf("\t%s\tTest %d:\tShould apply the configured threshold.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould apply the configured threshold.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen selecting the next target.", testID)
		{
			p := workpool.New(lowThreshold)
			p.Add(hash1, acc1, false)
			p.Add(hash2, acc1, false)

			e, ok := p.Next()
			if !ok || e.Hash != hash1 {
				t.Fatalf("\t%s\tTest %d:\tShould select the oldest entry: %+v", failed, testID, e)
			}
			t.Logf("\t%s\tTest %d:\tShould select the oldest entry.", success, testID)

			p.SetRequested(hash1)
			e, _ = p.Next()
			if e.Hash != hash2 {
				t.Fatalf("\t%s\tTest %d:\tShould skip requested entries: %+v", failed, testID, e)
			}
			t.Logf("\t%s\tTest %d:\tShould skip requested entries.", success, testID)

			p.SetNeeded(hash1)
			e, _ = p.Next()
			if e.Hash != hash1 {
				t.Fatalf("\t%s\tTest %d:\tShould select requested entries that are needed: %+v", failed, testID, e)
			}
			t.Logf("\t%s\tTest %d:\tShould select requested entries that are needed.", success, testID)

			work := solve(t, hash1, lowThreshold)
			if err := p.Check(work, hash1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate against the pool threshold: %v", failed, testID, err)
			}
			p.MarkWorked(hash1, work)
			p.SetRequested(hash2)
			if _, ok := p.Next(); ok {
				t.Fatalf("\t%s\tTest %d:\tShould have nothing left to select.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have nothing left to select.", success, testID)

			if !p.Waiting() {
				t.Fatalf("\t%s\tTest %d:\tShould still be waiting on requested work.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould still be waiting on requested work.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen removing entries.", testID)
		{
			p := workpool.New(lowThreshold)
			p.Add(hash1, acc1, false)
			p.Add(hash2, acc2, false)
			p.Add(hash3, acc1, false)

			if !p.Remove(hash2) || p.Remove(hash2) {
				t.Fatalf("\t%s\tTest %d:\tShould remove an entry once.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould remove an entry once.", success, testID)

			p.RemoveAccount(acc1)
			if p.Len() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould remove every entry for the account: %+v", failed, testID, p.Entries())
			}
			t.Logf("\t%s\tTest %d:\tShould remove every entry for the account.", success, testID)

			if p.Waiting() {
				t.Fatalf("\t%s\tTest %d:\tShould not be waiting on an empty pool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not be waiting on an empty pool.", success, testID)
		}
	}
}
