// dohquery is a minimal DoH client for exercising a running dohgate
// proxy (or any RFC 8484 server) from the command line.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dohgate/dohgate/internal/dnswire"
)

func main() {
	var (
		server  = flag.String("server", "https://localhost:8443/dns-query", "DoH endpoint URL")
		name    = flag.String("name", "example.com", "Query name")
		qtype   = flag.String("qtype", "A", "Query type (mnemonic like A/AAAA/MX, or numeric)")
		post    = flag.Bool("post", false, "Use POST wire form instead of GET wire form")
		json    = flag.Bool("json", false, "Use the GET JSON form (?name=&type=) instead of the wire form")
		timeout = flag.Duration("timeout", 3*time.Second, "Request timeout")
		quiet   = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	resp, err := query(*server, *name, *qtype, *post, *json, *timeout)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dohquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	p, err := dnswire.ParseResponse(resp)
	if err != nil {
		fmt.Printf("received %d bytes (unparseable: %v)\n", len(resp), err)
		return
	}

	fmt.Printf("id=%d rcode=%d answers=%d authorities=%d additionals=%d\n",
		p.Header.ID,
		dnswire.RCodeFromFlags(p.Header.Flags),
		len(p.Answers),
		len(p.Authorities),
		len(p.Additionals),
	)

	rows := make([]string, 0, len(p.Answers))
	for _, rr := range p.Answers {
		rows = append(rows, formatRR(rr))
	}
	sort.Strings(rows)
	for _, s := range rows {
		fmt.Println(s)
	}
}

func query(server, name, qtype string, post, useJSON bool, timeout time.Duration) ([]byte, error) {
	client := &http.Client{Timeout: timeout}

	if useJSON {
		u, err := url.Parse(server)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("name", name)
		if qtype != "" {
			q.Set("type", qtype)
		}
		u.RawQuery = q.Encode()
		req, err := http.NewRequest(http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/dns-json")
		return do(client, req)
	}

	wire, err := buildWireQuery(name, qtype)
	if err != nil {
		return nil, err
	}

	if post {
		req, err := http.NewRequest(http.MethodPost, server, strings.NewReader(string(wire)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/dns-message")
		req.Header.Set("Accept", "application/dns-message")
		return do(client, req)
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("dns", dnswire.Base64URLEncode(wire))
	u.RawQuery = q.Encode()
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/dns-message")
	return do(client, req)
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func buildWireQuery(name, qtype string) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name required")
	}
	q, err := dnswire.ParseQueryFromJSON(name, qtype)
	if err != nil {
		return nil, err
	}
	return q.Raw, nil
}

func formatRR(rr dnswire.Record) string {
	name := rr.Name
	if name == "" {
		name = "."
	}
	typeName := fmt.Sprintf("TYPE%d", rr.Type)
	switch dnswire.RecordType(rr.Type) {
	case dnswire.TypeA:
		typeName = "A"
	case dnswire.TypeAAAA:
		typeName = "AAAA"
	case dnswire.TypeCNAME:
		typeName = "CNAME"
	case dnswire.TypeNS:
		typeName = "NS"
	case dnswire.TypeMX:
		typeName = "MX"
	case dnswire.TypeTXT:
		typeName = "TXT"
	case dnswire.TypePTR:
		typeName = "PTR"
	case dnswire.TypeSOA:
		typeName = "SOA"
	}
	return fmt.Sprintf("%s %d IN %s %s", name, rr.TTL, typeName, rr.TextValue())
}
