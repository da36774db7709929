package facts

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"

	"github.com/ZuhairORZaki/subscription-manager/env"
)

// collectDistribution fills distribution.* from an os-release file.
func collectDistribution(path string, facts map[string]string) {
	values, err := env.LoadFile(path)
	if err != nil {
		log.Warn("cannot read os-release", "path", path, "error", err)
		return
	}

	if name := values["NAME"]; name != "" {
		facts["distribution.name"] = name
	}
	if version := values["VERSION_ID"]; version != "" {
		facts["distribution.version"] = version
	}

	// The codename either has its own key or hides in parentheses in
	// VERSION, as in "9.4 (Plow)".
	codename := values["VERSION_CODENAME"]
	if codename == "" {
		if version := values["VERSION"]; version != "" {
			if open := strings.Index(version, "("); open >= 0 {
				if closing := strings.Index(version[open:], ")"); closing > 0 {
					codename = version[open+1 : open+closing]
				}
			}
		}
	}
	if codename != "" {
		facts["distribution.id"] = codename
	}
}

// collectHost fills uname.* and the boot time.
func collectHost(ctx context.Context, facts map[string]string) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		log.Warn("host probe failed", "error", err)
		return
	}

	facts["uname.sysname"] = "Linux"
	facts["uname.nodename"] = info.Hostname
	facts["uname.release"] = info.KernelVersion
	facts["uname.machine"] = info.KernelArch
	facts["network.hostname"] = info.Hostname

	if info.BootTime > 0 {
		facts["last_boot"] = time.Unix(int64(info.BootTime), 0).UTC().Format("2006-01-02 15:04:05")
	}
}

// collectCPU fills the cpu.* counts.
func collectCPU(ctx context.Context, facts map[string]string) {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		log.Warn("cpu probe failed", "error", err)
		return
	}
	facts["cpu.cpu(s)"] = strconv.Itoa(logical)

	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		if err != nil {
			log.Debug("cpu topology unavailable", "error", err)
		}
		return
	}

	sockets := make(map[string]bool)
	for _, info := range infos {
		if info.PhysicalID != "" {
			sockets[info.PhysicalID] = true
		}
	}
	socketCount := len(sockets)
	if socketCount == 0 {
		socketCount = 1
	}
	facts["cpu.cpu_socket(s)"] = strconv.Itoa(socketCount)

	if cores := int(infos[0].Cores); cores > 0 {
		facts["cpu.core(s)_per_socket"] = strconv.Itoa(cores)
	}
}

// collectMemory fills memory.* in kilobytes, the unit the original
// facts always used.
func collectMemory(ctx context.Context, facts map[string]string) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		log.Warn("memory probe failed", "error", err)
		return
	}
	facts["memory.memtotal"] = strconv.FormatUint(vm.Total/1024, 10)

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		log.Debug("swap probe failed", "error", err)
		return
	}
	facts["memory.swaptotal"] = strconv.FormatUint(swap.Total/1024, 10)
}

// collectNetwork fills per-interface addresses and the summary
// network.* facts. The first address of each family per interface is
// recorded, loopback included, matching how the interface facts have
// always looked.
func collectNetwork(ctx context.Context, facts map[string]string) {
	ifaces, err := gnet.InterfacesWithContext(ctx)
	if err != nil {
		log.Warn("network probe failed", "error", err)
		return
	}

	for _, iface := range ifaces {
		prefix := "net.interface." + iface.Name
		if iface.HardwareAddr != "" {
			facts[prefix+".mac_address"] = iface.HardwareAddr
		}

		for _, addr := range iface.Addrs {
			ip := parseAddr(addr.Addr)
			if ip == nil {
				continue
			}

			if v4 := ip.To4(); v4 != nil {
				setIfAbsent(facts, prefix+".ipv4_address", v4.String())
				if ip.IsGlobalUnicast() {
					setIfAbsent(facts, "network.ipv4_address", v4.String())
				}
			} else {
				setIfAbsent(facts, prefix+".ipv6_address", ip.String())
				if ip.IsGlobalUnicast() {
					setIfAbsent(facts, "network.ipv6_address", ip.String())
				}
			}
		}
	}

	if hostname, ok := facts["network.hostname"]; ok {
		setIfAbsent(facts, "network.fqdn", hostname)
	}
}

// parseAddr accepts both CIDR and bare address forms.
func parseAddr(addr string) net.IP {
	if ip, _, err := net.ParseCIDR(addr); err == nil {
		return ip
	}
	return net.ParseIP(addr)
}

func setIfAbsent(facts map[string]string, key, value string) {
	if _, ok := facts[key]; !ok {
		facts[key] = value
	}
}
